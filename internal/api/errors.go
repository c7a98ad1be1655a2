package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/observ"
	"go.uber.org/zap"
)

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.PermissionDenied:
		return http.StatusForbidden
	case apperr.Conflict, apperr.AlreadyLiked, apperr.AlreadySaved:
		return http.StatusConflict
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Unavailable:
		return http.StatusServiceUnavailable
	case apperr.Validation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes {"error", "code"} for a service error. Internal errors
// are logged and their detail is hidden from the client.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	kind := apperr.KindOf(err)
	status := statusOf(kind)
	msg := apperr.Message(err)

	log := observ.For(c.Request.Context(), logger)
	switch {
	case kind == apperr.Unavailable:
		log.Warn("failed to "+op, zap.Error(err))
		c.Header("Retry-After", "1")
	case status >= 500:
		log.Error("failed to "+op, zap.String("code", string(kind)), zap.Error(err))
		msg = "failed to " + op
	}
	c.JSON(status, gin.H{"error": msg, "code": string(kind)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(apperr.Validation)})
}

// queryLimit parses ?limit=, returning 0 (store default) when absent or bad.
func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
