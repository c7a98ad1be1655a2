package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/potluck/internal/middleware"
	"github.com/lalith-99/potluck/internal/repository"
	"go.uber.org/zap"
)

type UserHandler struct {
	users       repository.UserRepository
	posts       repository.PostRepository
	boards      repository.BoardRepository
	communities repository.CommunityRepository
	logger      *zap.Logger
}

func NewUserHandler(
	users repository.UserRepository,
	posts repository.PostRepository,
	boards repository.BoardRepository,
	communities repository.CommunityRepository,
	logger *zap.Logger,
) *UserHandler {
	return &UserHandler{users: users, posts: posts, boards: boards, communities: communities, logger: logger}
}

// Me handles GET /v1/users/me. The first call after sign-in creates the
// user document from the token claims.
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.users.Ensure(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, h.logger, "load profile", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"max=100"`
	ImageURL    string `json:"image_url" binding:"omitempty,url"`
}

// UpdateMe handles PATCH /v1/users/me.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.users.Ensure(ctx, middleware.Identity(c)); err != nil {
		respondError(c, h.logger, "update profile", err)
		return
	}
	u, err := h.users.Update(ctx, middleware.GetUserID(c), req.DisplayName, req.ImageURL)
	if err != nil {
		respondError(c, h.logger, "update profile", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Posts(c *gin.Context) {
	posts, err := h.posts.ListByUser(c.Request.Context(), c.Param("id"), queryLimit(c))
	if err != nil {
		respondError(c, h.logger, "list posts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Boards lists a user's boards. Private ones are included only for the owner.
func (h *UserHandler) Boards(c *gin.Context) {
	boards, err := h.boards.ListByUser(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, "list boards", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"boards": boards})
}

func (h *UserHandler) Communities(c *gin.Context) {
	communities, err := h.communities.ListByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "list communities", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": communities})
}
