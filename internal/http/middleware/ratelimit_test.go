package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func limitedRouter(rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.Use(rl.Handler())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func post(r http.Handler, vendor string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	if vendor != "" {
		req.Header.Set(HeaderVendorID, vendor)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestKeyByVendorOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	key := KeyByVendorOrIP()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.1.2.3:5555"
	if got := key(c); got != "ip:10.1.2.3" {
		t.Fatalf("anonymous key = %q", got)
	}
	c.Request.Header.Set(HeaderVendorID, "v9")
	if got := key(c); got != "vendor:v9" {
		t.Fatalf("header key = %q", got)
	}
	c.Set(VendorIDKey, "v1")
	if got := key(c); got != "vendor:v1" {
		t.Fatalf("context key = %q", got)
	}
}

func TestRateLimiter_RejectsWithRetryAfter(t *testing.T) {
	rl := NewRateLimiter(0.5, 0, nil) // burst coerced to 1
	r := limitedRouter(rl)

	if w := post(r, "v1"); w.Code != http.StatusNoContent {
		t.Fatalf("first request = %d", w.Code)
	}
	w := post(r, "v1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d; want 429", w.Code)
	}
	if ra := w.Header().Get("Retry-After"); ra != "2" {
		t.Fatalf("Retry-After = %q; want 2", ra)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["code"] != "too_many_requests" {
		t.Fatalf("unexpected body %q (%v)", w.Body.String(), err)
	}

	// Separate identities get separate buckets.
	if w := post(r, "v2"); w.Code != http.StatusNoContent {
		t.Fatalf("other vendor = %d", w.Code)
	}
}

func TestRateLimiter_RejectionDoesNotConsume(t *testing.T) {
	rl := NewRateLimiter(0.5, 1, nil)
	r := limitedRouter(rl)

	post(r, "v1")
	for i := 0; i < 5; i++ {
		if w := post(r, "v1"); w.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt %d = %d", i, w.Code)
		}
	}
	// A cancelled reservation returns its token, so the wait never grows.
	if ra := post(r, "v1").Header().Get("Retry-After"); ra != "2" {
		t.Fatalf("Retry-After grew to %q", ra)
	}
}

func TestRateLimiter_ReplayBypass(t *testing.T) {
	rl := NewRateLimiter(0.01, 1, nil)
	replay := func(c *gin.Context) {
		if c.GetHeader("X-Replay") == "1" {
			c.Set(ctxKeyRateBypass, true)
		}
	}
	r := limitedRouter(rl, replay)

	post(r, "v1")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(HeaderVendorID, "v1")
	req.Header.Set("X-Replay", "1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("replay was limited: %d", w.Code)
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	rl.sweepN = 2
	rl.ttl = 0

	rl.limiter("a")
	rl.limiter("b") // triggers a sweep that evicts "a"
	rl.mu.Lock()
	_, hasA := rl.visitors["a"]
	rl.mu.Unlock()
	if hasA {
		t.Fatalf("idle bucket was not evicted")
	}
}
