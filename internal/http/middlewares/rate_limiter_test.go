package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeebo/assert"
)

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	now = now.Add(rl.idleTTL + time.Second)
	assert.True(t, rl.Allow("b"))

	rl.mu.Lock()
	_, found := rl.buckets["a"]
	rl.mu.Unlock()
	assert.False(t, found)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(1, 1).RateLimitMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(wallet string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(walletHeader, wallet)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, call("0x1"), http.StatusOK)
	assert.Equal(t, call("0x1"), http.StatusTooManyRequests)
	assert.Equal(t, call("0x2"), http.StatusOK)
}
