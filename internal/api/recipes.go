package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/middleware"
	"github.com/lalith-99/potluck/internal/models"
	"github.com/lalith-99/potluck/internal/repository"
	"github.com/lalith-99/potluck/internal/repository/store"
	"go.uber.org/zap"
)

const (
	trendingWindow = 7 * 24 * time.Hour
	trendingLimit  = 10
)

type RecipeHandler struct {
	recipes    repository.RecipeRepository
	ratings    repository.RatingRepository
	engagement Engagement
	now        func() time.Time
	logger     *zap.Logger
}

func NewRecipeHandler(recipes repository.RecipeRepository, ratings repository.RatingRepository, engagement Engagement, logger *zap.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, ratings: ratings, engagement: engagement, now: time.Now, logger: logger}
}

type recipeRequest struct {
	Title        string              `json:"title" binding:"required,max=200"`
	Ingredients  []models.Ingredient `json:"ingredients" binding:"required,min=1,dive"`
	Instructions string              `json:"instructions" binding:"required"`
	Notes        string              `json:"notes"`
	CookingTime  int64               `json:"cooking_time" binding:"gte=0"`
	Difficulty   string              `json:"difficulty" binding:"omitempty,oneof=Easy Medium Hard"`
	MealType     string              `json:"meal_type"`
	Dietary      []string            `json:"dietary"`
	ImageURL     string              `json:"image_url" binding:"omitempty,url"`
}

func (r recipeRequest) input() repository.RecipeInput {
	return repository.RecipeInput{
		Title:        r.Title,
		Ingredients:  r.Ingredients,
		Instructions: r.Instructions,
		Notes:        r.Notes,
		CookingTime:  r.CookingTime,
		Difficulty:   r.Difficulty,
		MealType:     r.MealType,
		Dietary:      r.Dietary,
		ImageURL:     r.ImageURL,
	}
}

func (h *RecipeHandler) Create(c *gin.Context) {
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	r, err := h.recipes.Create(c.Request.Context(), middleware.GetUserID(c), req.input())
	if err != nil {
		respondError(c, h.logger, "create recipe", err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *RecipeHandler) List(c *gin.Context) {
	recipes, err := h.recipes.List(c.Request.Context(), queryLimit(c))
	if err != nil {
		respondError(c, h.logger, "list recipes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// Trending handles GET /v1/recipes/trending?days=7&limit=10.
func (h *RecipeHandler) Trending(c *gin.Context) {
	window := trendingWindow
	if d := c.Query("days"); d != "" {
		days, err := strconv.Atoi(d)
		if err != nil || days < 1 || days > 365 {
			respondError(c, h.logger, "list trending recipes", apperr.Invalidf("days must be between 1 and 365"))
			return
		}
		window = time.Duration(days) * 24 * time.Hour
	}
	limit := queryLimit(c)
	if limit == 0 {
		limit = trendingLimit
	}
	recipes, err := h.recipes.Trending(c.Request.Context(), h.now().Add(-window), limit)
	if err != nil {
		respondError(c, h.logger, "list trending recipes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// Get returns the recipe document, so like_count matches the list views.
func (h *RecipeHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	r, err := h.recipes.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get recipe", err)
		return
	}
	liked, err := h.engagement.HasLiked(ctx, middleware.GetUserID(c), store.TargetRecipe, r.ID)
	if err != nil {
		respondError(c, h.logger, "get recipe", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": r, "liked": liked})
}

func (h *RecipeHandler) Update(c *gin.Context) {
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	r, err := h.recipes.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.input())
	if err != nil {
		respondError(c, h.logger, "update recipe", err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	if err := h.recipes.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete recipe", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) Likes(c *gin.Context) {
	likeStatus(c, h.engagement, h.logger, store.TargetRecipe)
}

func (h *RecipeHandler) Like(c *gin.Context) {
	like(c, h.engagement, h.logger, store.TargetRecipe)
}

func (h *RecipeHandler) Unlike(c *gin.Context) {
	unlike(c, h.engagement, h.logger, store.TargetRecipe)
}

type rateRequest struct {
	Value int64 `json:"value" binding:"required,min=1,max=5"`
}

// Rate handles PUT /v1/recipes/:id/rating and returns the new summary.
func (h *RecipeHandler) Rate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	rating, err := h.ratings.Rate(ctx, middleware.GetUserID(c), c.Param("id"), req.Value)
	if err != nil {
		respondError(c, h.logger, "rate recipe", err)
		return
	}
	sum, err := h.ratings.Summary(ctx, rating.RecipeID)
	if err != nil {
		respondError(c, h.logger, "rate recipe", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": rating, "summary": sum})
}

func (h *RecipeHandler) Rating(c *gin.Context) {
	sum, err := h.ratings.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get rating", err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
