package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("/api/plans") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	if rl.Allow("/api/plans") {
		t.Error("fourth request should be rejected")
	}
}

func TestRateLimiterIsolatesKeys(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if !rl.Allow("/api/plans") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("/api/plans") {
		t.Error("second request on same key should be rejected")
	}
	if !rl.Allow("/api/withdrawals") {
		t.Error("different key should have its own budget")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("k") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("k") {
		t.Fatal("second immediate request should be rejected")
	}

	time.Sleep(20 * time.Millisecond)

	if !rl.Allow("k") {
		t.Error("request after window expiry should be allowed")
	}
}

func testContext(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/test"+query, nil)
	return c
}

func TestLimitParam(t *testing.T) {
	tests := []struct {
		name  string
		query string
		def   int
		max   int
		want  int
	}{
		{"default when absent", "", 50, 200, 50},
		{"explicit value", "?limit=10", 50, 200, 10},
		{"clamped to max", "?limit=9999", 50, 200, 200},
		{"non-numeric falls back", "?limit=abc", 50, 200, 50},
		{"zero falls back", "?limit=0", 50, 200, 50},
		{"negative falls back", "?limit=-5", 50, 200, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testContext(tt.query)
			if got := limitParam(c, tt.def, tt.max); got != tt.want {
				t.Errorf("limitParam(%q) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}
