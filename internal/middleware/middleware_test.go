package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/potluck/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const secret = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

func token(t *testing.T, uid string) string {
	t.Helper()
	tok, err := auth.GenerateToken(auth.Claims{UserID: uid, Name: "Ada", Email: "ada@example.com"}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(secret), func(c *gin.Context) {
		id := Identity(c)
		c.JSON(http.StatusOK, gin.H{"uid": id.UserID, "name": id.Name, "email": id.Email})
	})

	w := do(r, "Bearer "+token(t, "u1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"u1","name":"Ada","email":"ada@example.com"}`, w.Body.String())

	for _, h := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		w := do(r, h)
		assert.Equal(t, http.StatusUnauthorized, w.Code, h)
		assert.Contains(t, w.Body.String(), `"code":"unauthenticated"`)
	}
}

func TestRateLimiterPerUser(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	r := gin.New()
	r.GET("/me", AuthMiddleware(secret), rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	a := "Bearer " + token(t, "a")
	assert.Equal(t, http.StatusNoContent, do(r, a).Code)
	assert.Equal(t, http.StatusNoContent, do(r, a).Code)
	w := do(r, a)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Another user has a separate bucket.
	assert.Equal(t, http.StatusNoContent, do(r, "Bearer "+token(t, "b")).Code)
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.limiter("a")
	now = now.Add(2 * time.Minute)
	rl.limiter("b")
	assert.Equal(t, 2, rl.Sweep())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, rl.Sweep())
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.GET("/me", Timeout(time.Second), func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": ok})
	})
	w := do(r, "")
	assert.JSONEq(t, `{"deadline":true}`, w.Body.String())
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := do(r, "")
	id := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, id)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, id, entries[0].ContextMap()["request_id"])
	assert.Equal(t, int64(http.StatusTeapot), entries[0].ContextMap()["status"])
}
