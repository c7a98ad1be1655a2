package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/potluck/internal/membership"
	"github.com/lalith-99/potluck/internal/middleware"
	"github.com/lalith-99/potluck/internal/repository"
	"go.uber.org/zap"
)

// Memberships is the part of the membership manager the handlers use.
type Memberships interface {
	Join(ctx context.Context, userID, communityID string) (*membership.Status, error)
	Leave(ctx context.Context, userID, communityID string) (*membership.Status, error)
	IsMember(ctx context.Context, userID, communityID string) (bool, error)
}

type CommunityHandler struct {
	communities repository.CommunityRepository
	members     Memberships
	logger      *zap.Logger
}

func NewCommunityHandler(communities repository.CommunityRepository, members Memberships, logger *zap.Logger) *CommunityHandler {
	return &CommunityHandler{communities: communities, members: members, logger: logger}
}

type createCommunityRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"required,max=2000"`
	Location    string `json:"location" binding:"required,max=200"`
	ImageURL    string `json:"image_url" binding:"omitempty,url"`
}

// Create handles POST /v1/communities.
//
// Why isn't the creator joined here?
//   - A community starts tentative and is published by its members joining.
//     Counting the creator would publish a community after a single extra
//     join, so the creator joins through the same endpoint as everyone else.
func (h *CommunityHandler) Create(c *gin.Context) {
	var req createCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	com, err := h.communities.Create(c.Request.Context(), repository.NewCommunity{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
		CreatedBy:   middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, h.logger, "create community", err)
		return
	}
	c.JSON(http.StatusCreated, com)
}

// List handles GET /v1/communities. ?q= searches by name prefix and
// ?published=true hides tentative communities.
func (h *CommunityHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		out any
		err error
	)
	if q := c.Query("q"); q != "" {
		out, err = h.communities.Search(ctx, q, queryLimit(c))
	} else {
		out, err = h.communities.List(ctx, c.Query("published") == "true", queryLimit(c))
	}
	if err != nil {
		respondError(c, h.logger, "list communities", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": out})
}

// Get returns the community together with the caller's membership.
func (h *CommunityHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	com, err := h.communities.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get community", err)
		return
	}
	member, err := h.members.IsMember(ctx, middleware.GetUserID(c), com.ID)
	if err != nil {
		respondError(c, h.logger, "get community", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"community": com, "is_member": member})
}

func (h *CommunityHandler) Join(c *gin.Context) {
	st, err := h.members.Join(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "join community", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *CommunityHandler) Leave(c *gin.Context) {
	st, err := h.members.Leave(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "leave community", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *CommunityHandler) Members(c *gin.Context) {
	members, err := h.communities.ListMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "list members", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}
