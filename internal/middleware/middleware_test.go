package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type staticVerifier map[string]string

func (v staticVerifier) Verify(token string) (string, error) {
	if subject, ok := v[token]; ok {
		return subject, nil
	}
	return "", errors.New("bad token")
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBearerAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BearerAuth(staticVerifier{"good": "ana"}))
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, Subject(c)) })

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer good", http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "ana", w.Body.String())
			}
		})
	}
}

func TestClientRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewClientRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 1})

	assert.True(t, rl.Allow("ana"))
	assert.False(t, rl.Allow("ana"))
	assert.True(t, rl.Allow("ivo"))
}

func TestClientRateLimiterSweep(t *testing.T) {
	rl := NewClientRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute})
	rl.Allow("ana")

	assert.Zero(t, rl.Sweep(time.Now()))
	assert.Equal(t, 1, rl.Sweep(time.Now().Add(2*time.Minute)))
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(NewClientRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 1})))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, "").Code)
}
