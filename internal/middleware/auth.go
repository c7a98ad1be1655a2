package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/potluck/internal/auth"
	"github.com/lalith-99/potluck/internal/repository"
)

// Context keys for the verified identity.
const (
	ContextKeyUserID  = "user_id"
	ContextKeyName    = "name"
	ContextKeyEmail   = "email"
	ContextKeyPicture = "picture"
)

// AuthMiddleware verifies the bearer token and stores the caller's identity
// in the gin context. Requests without a valid token stop here with 401.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
				"code":  "unauthenticated",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Bearer <token>",
				"code":  "unauthenticated",
			})
			return
		}

		claims, err := auth.ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
				"code":  "unauthenticated",
			})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyName, claims.Name)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyPicture, claims.Picture)
		c.Next()
	}
}

// GetUserID returns the caller's uid, or "" outside an authenticated route.
func GetUserID(c *gin.Context) string { return c.GetString(ContextKeyUserID) }

func GetName(c *gin.Context) string { return c.GetString(ContextKeyName) }

func GetEmail(c *gin.Context) string { return c.GetString(ContextKeyEmail) }

func GetPicture(c *gin.Context) string { return c.GetString(ContextKeyPicture) }

// Identity collects the token claims in the form the user repository takes.
func Identity(c *gin.Context) repository.Identity {
	return repository.Identity{
		UserID:   GetUserID(c),
		Name:     GetName(c),
		Email:    GetEmail(c),
		ImageURL: GetPicture(c),
	}
}
