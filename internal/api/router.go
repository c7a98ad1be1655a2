package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/potluck/internal/blob"
	"github.com/lalith-99/potluck/internal/middleware"
	"github.com/lalith-99/potluck/internal/repository"
	"go.uber.org/zap"
)

// Deps is everything the router needs. Checks are run by the health
// endpoint; a failing check turns it into a 503.
type Deps struct {
	Users       repository.UserRepository
	Communities repository.CommunityRepository
	Posts       repository.PostRepository
	Recipes     repository.RecipeRepository
	Ratings     repository.RatingRepository
	Boards      repository.BoardRepository
	Members     Memberships
	Engagement  Engagement
	Blobs       blob.Store
	Live        http.Handler
	Checks      map[string]func(context.Context) error

	JWTSecret      string
	RequestTimeout time.Duration
	Limiter        *middleware.RateLimiter
	Logger         *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger), middleware.Timeout(d.RequestTimeout))

	r.GET("/v1/health", health(d.Checks))
	if d.Live != nil {
		r.GET("/v1/ws", gin.WrapH(d.Live))
	}

	users := NewUserHandler(d.Users, d.Posts, d.Boards, d.Communities, d.Logger)
	communities := NewCommunityHandler(d.Communities, d.Members, d.Logger)
	posts := NewPostHandler(d.Posts, d.Engagement, d.Logger)
	recipes := NewRecipeHandler(d.Recipes, d.Ratings, d.Engagement, d.Logger)
	boards := NewBoardHandler(d.Boards, d.Logger)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(d.JWTSecret))

	// Writes are rate limited per user; reads are not.
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if d.Limiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{d.Limiter.Middleware(), h}
	}

	v1.GET("/users/me", users.Me)
	v1.PATCH("/users/me", limited(users.UpdateMe)...)
	v1.GET("/users/:id/posts", users.Posts)
	v1.GET("/users/:id/boards", users.Boards)
	v1.GET("/users/:id/communities", users.Communities)

	v1.POST("/communities", limited(communities.Create)...)
	v1.GET("/communities", communities.List)
	v1.GET("/communities/:id", communities.Get)
	v1.POST("/communities/:id/join", limited(communities.Join)...)
	v1.POST("/communities/:id/leave", limited(communities.Leave)...)
	v1.GET("/communities/:id/members", communities.Members)
	v1.GET("/communities/:id/posts", posts.ListByCommunity)
	v1.POST("/communities/:id/posts", limited(posts.Create)...)

	v1.GET("/posts", posts.Feed)
	v1.GET("/posts/:id", posts.Get)
	v1.DELETE("/posts/:id", limited(posts.Delete)...)
	v1.GET("/posts/:id/likes", posts.Likes)
	v1.POST("/posts/:id/like", limited(posts.Like)...)
	v1.DELETE("/posts/:id/like", limited(posts.Unlike)...)
	v1.GET("/posts/:id/comments", posts.ListComments)
	v1.POST("/posts/:id/comments", limited(posts.AddComment)...)
	v1.DELETE("/posts/:id/comments/:commentId", limited(posts.DeleteComment)...)

	v1.POST("/recipes", limited(recipes.Create)...)
	v1.GET("/recipes", recipes.List)
	v1.GET("/recipes/trending", recipes.Trending)
	v1.GET("/recipes/:id", recipes.Get)
	v1.PATCH("/recipes/:id", limited(recipes.Update)...)
	v1.DELETE("/recipes/:id", limited(recipes.Delete)...)
	v1.GET("/recipes/:id/likes", recipes.Likes)
	v1.POST("/recipes/:id/like", limited(recipes.Like)...)
	v1.DELETE("/recipes/:id/like", limited(recipes.Unlike)...)
	v1.PUT("/recipes/:id/rating", limited(recipes.Rate)...)
	v1.GET("/recipes/:id/rating", recipes.Rating)

	v1.POST("/boards", limited(boards.Create)...)
	v1.GET("/boards/:id", boards.Get)
	v1.PATCH("/boards/:id", limited(boards.Update)...)
	v1.DELETE("/boards/:id", limited(boards.Delete)...)
	v1.GET("/boards/:id/recipes", boards.Recipes)
	v1.PUT("/boards/:id/recipes/:recipeId", limited(boards.SaveRecipe)...)
	v1.DELETE("/boards/:id/recipes/:recipeId", limited(boards.RemoveRecipe)...)

	if d.Blobs != nil {
		uploads := NewUploadHandler(d.Blobs, d.Logger)
		v1.POST("/uploads/:kind", limited(uploads.Upload)...)
	}
	return r
}

func health(checks map[string]func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	}
}
