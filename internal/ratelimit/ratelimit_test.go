package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestLimiterAllow_Burst(t *testing.T) {
	limiter := New(Config{RequestsPerMinute: 1, BurstSize: 3, CleanupInterval: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		if !limiter.Allow("user:user1") {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if limiter.Allow("user:user1") {
		t.Error("request after burst should be denied")
	}
}

func TestLimiterMultipleCallers(t *testing.T) {
	limiter := New(Config{RequestsPerMinute: 1, BurstSize: 1, CleanupInterval: time.Minute})
	defer limiter.Stop()

	if !limiter.Allow("a") || !limiter.Allow("b") {
		t.Fatal("first request per caller should be allowed")
	}
	if limiter.Allow("a") {
		t.Error("a should be limited")
	}
}

func TestLimiter_StopTwice(t *testing.T) {
	limiter := New(DefaultConfig())
	limiter.Stop()
	limiter.Stop()
}

func TestMiddleware_KeysByUserHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := New(Config{RequestsPerMinute: 1, BurstSize: 1, CleanupInterval: time.Minute})
	defer limiter.Stop()

	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(user string) int {
		req := httptest.NewRequest("GET", "/x", nil)
		if user != "" {
			req.Header.Set(UserHeader, user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do("user1"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := do("user1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if code := do("user2"); code != http.StatusOK {
		t.Fatalf("other user should not be limited, got %d", code)
	}
}
