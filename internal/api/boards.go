package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/potluck/internal/middleware"
	"github.com/lalith-99/potluck/internal/repository"
	"go.uber.org/zap"
)

type BoardHandler struct {
	boards repository.BoardRepository
	logger *zap.Logger
}

func NewBoardHandler(boards repository.BoardRepository, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{boards: boards, logger: logger}
}

type boardRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=1000"`
	IsPrivate   bool   `json:"is_private"`
}

func (h *BoardHandler) Create(c *gin.Context) {
	var req boardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.boards.Create(c.Request.Context(), middleware.GetUserID(c), req.Name, req.Description, req.IsPrivate)
	if err != nil {
		respondError(c, h.logger, "create board", err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BoardHandler) Get(c *gin.Context) {
	b, err := h.boards.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get board", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BoardHandler) Update(c *gin.Context) {
	var req boardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.boards.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Name, req.Description, req.IsPrivate)
	if err != nil {
		respondError(c, h.logger, "update board", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BoardHandler) Delete(c *gin.Context) {
	if err := h.boards.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete board", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BoardHandler) Recipes(c *gin.Context) {
	recipes, err := h.boards.ListRecipes(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "list board recipes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// SaveRecipe handles PUT /v1/boards/:id/recipes/:recipeId. Saving twice is a
// 409 with code already_saved.
func (h *BoardHandler) SaveRecipe(c *gin.Context) {
	saved, err := h.boards.SaveRecipe(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), c.Param("recipeId"))
	if err != nil {
		respondError(c, h.logger, "save recipe", err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *BoardHandler) RemoveRecipe(c *gin.Context) {
	if err := h.boards.RemoveRecipe(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), c.Param("recipeId")); err != nil {
		respondError(c, h.logger, "remove recipe", err)
		return
	}
	c.Status(http.StatusNoContent)
}
