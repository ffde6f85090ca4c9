package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimitedRouter(t *testing.T, cfg RateLimitConfig) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	limiter := NewRateLimiter(client)
	router := gin.New()
	router.POST("/api/auth/login", limiter.Limit(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router, mr
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	router, _ := setupRateLimitedRouter(t, StrictAuthRateLimitConfig())

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "Запрос %d не должен блокироваться", i+1)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	router, _ := setupRateLimitedRouter(t, StrictAuthRateLimitConfig())

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		router.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code, "Шестой запрос за минуту блокируется")
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, last.Body.String(), "rate_limited")
}

func TestRateLimiter_WindowExpiryResetsCounter(t *testing.T) {
	router, mr := setupRateLimitedRouter(t, StrictAuthRateLimitConfig())

	for i := 0; i < 6; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		router.ServeHTTP(w, req)
	}

	// Сдвигаем время в miniredis за границу окна
	mr.FastForward(61 * time.Second)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "После истечения окна счётчик обнуляется")
}

func TestRateLimiter_FailOpenWhenRedisDown(t *testing.T) {
	router, mr := setupRateLimitedRouter(t, StrictAuthRateLimitConfig())
	mr.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "Недоступный Redis не должен блокировать запросы")
}
