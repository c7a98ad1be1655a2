package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/potluck/internal/middleware"
	"github.com/lalith-99/potluck/internal/models"
	"github.com/lalith-99/potluck/internal/repository"
	"github.com/lalith-99/potluck/internal/repository/store"
	"go.uber.org/zap"
)

// Engagement is the part of the engagement counter the handlers use.
type Engagement interface {
	Like(ctx context.Context, userID, target, id string) (int64, error)
	Unlike(ctx context.Context, userID, target, id string) (int64, error)
	LikeCount(ctx context.Context, target, id string) (int64, error)
	HasLiked(ctx context.Context, userID, target, id string) (bool, error)
	AddComment(ctx context.Context, userID, authorName, postID, text string) (*models.Comment, error)
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	DeleteComment(ctx context.Context, userID, postID, commentID string) error
}

type PostHandler struct {
	posts      repository.PostRepository
	engagement Engagement
	logger     *zap.Logger
}

func NewPostHandler(posts repository.PostRepository, engagement Engagement, logger *zap.Logger) *PostHandler {
	return &PostHandler{posts: posts, engagement: engagement, logger: logger}
}

type createPostRequest struct {
	Content  string `json:"content" binding:"required,max=5000"`
	ImageURL string `json:"image_url" binding:"omitempty,url"`
	RecipeID string `json:"recipe_id"`
}

// Create handles POST /v1/communities/:id/posts.
func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.posts.Create(c.Request.Context(), repository.NewPost{
		AuthorID:    middleware.GetUserID(c),
		AuthorName:  middleware.GetName(c),
		CommunityID: c.Param("id"),
		Content:     req.Content,
		ImageURL:    req.ImageURL,
		RecipeID:    req.RecipeID,
	})
	if err != nil {
		respondError(c, h.logger, "create post", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListByCommunity handles GET /v1/communities/:id/posts?sort=recent|popular.
func (h *PostHandler) ListByCommunity(c *gin.Context) {
	sort := repository.PostSort(c.DefaultQuery("sort", string(repository.SortRecent)))
	posts, err := h.posts.ListByCommunity(c.Request.Context(), c.Param("id"), sort, queryLimit(c))
	if err != nil {
		respondError(c, h.logger, "list posts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Feed handles GET /v1/posts.
func (h *PostHandler) Feed(c *gin.Context) {
	posts, err := h.posts.ListAll(c.Request.Context(), queryLimit(c))
	if err != nil {
		respondError(c, h.logger, "list posts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Get returns the post and whether the caller liked it. like_count comes
// from the post document, the same source the list endpoints use.
func (h *PostHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.posts.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get post", err)
		return
	}
	liked, err := h.engagement.HasLiked(ctx, middleware.GetUserID(c), store.TargetPost, p.ID)
	if err != nil {
		respondError(c, h.logger, "get post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": p, "liked": liked})
}

// Likes handles GET /v1/posts/:id/likes, the cache-backed counter clients
// poll without loading the post.
func (h *PostHandler) Likes(c *gin.Context) {
	likeStatus(c, h.engagement, h.logger, store.TargetPost)
}

func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete post", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PostHandler) Like(c *gin.Context) {
	like(c, h.engagement, h.logger, store.TargetPost)
}

func (h *PostHandler) Unlike(c *gin.Context) {
	unlike(c, h.engagement, h.logger, store.TargetPost)
}

type addCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *PostHandler) AddComment(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cm, err := h.engagement.AddComment(c.Request.Context(), middleware.GetUserID(c), middleware.GetName(c), c.Param("id"), req.Text)
	if err != nil {
		respondError(c, h.logger, "add comment", err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

func (h *PostHandler) ListComments(c *gin.Context) {
	comments, err := h.engagement.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "list comments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *PostHandler) DeleteComment(c *gin.Context) {
	err := h.engagement.DeleteComment(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), c.Param("commentId"))
	if err != nil {
		respondError(c, h.logger, "delete comment", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// like, unlike and likeStatus are shared by posts and recipes.
func like(c *gin.Context, e Engagement, logger *zap.Logger, target string) {
	n, err := e.Like(c.Request.Context(), middleware.GetUserID(c), target, c.Param("id"))
	if err != nil {
		respondError(c, logger, "like "+target, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": true, "like_count": n})
}

func unlike(c *gin.Context, e Engagement, logger *zap.Logger, target string) {
	n, err := e.Unlike(c.Request.Context(), middleware.GetUserID(c), target, c.Param("id"))
	if err != nil {
		respondError(c, logger, "unlike "+target, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": false, "like_count": n})
}

func likeStatus(c *gin.Context, e Engagement, logger *zap.Logger, target string) {
	ctx := c.Request.Context()
	id := c.Param("id")
	n, err := e.LikeCount(ctx, target, id)
	if err != nil {
		respondError(c, logger, "count likes", err)
		return
	}
	liked, err := e.HasLiked(ctx, middleware.GetUserID(c), target, id)
	if err != nil {
		respondError(c, logger, "count likes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": n})
}
