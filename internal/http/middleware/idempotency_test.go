package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type lookupCall struct{ scope, key string }

func idemRouter(opts IdempotencyOptions, lookup IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(opts, lookup))
	report := func(c *gin.Context) {
		key, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": key, "replay": IsReplay(c), "bypass": IsRateBypass(c)})
	}
	r.POST("/api/v1/sessions/:token/feedback", report)
	r.POST("/functions/v1/orcamento-chat", report)
	return r
}

func idemPost(r http.Handler, path, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_RejectsMalformedKeys(t *testing.T) {
	r := idemRouter(IdempotencyOptions{MaxLen: 10}, nil)
	for _, key := range []string{"has space", "way-too-long-key", "emoji😀"} {
		w := idemPost(r, "/api/v1/sessions/t1/feedback", key)
		if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "bad_idempotency_key") {
			t.Fatalf("key %q: %d %s", key, w.Code, w.Body.String())
		}
	}
}

func TestIdempotency_NoHeaderPassesThrough(t *testing.T) {
	called := false
	r := idemRouter(IdempotencyOptions{}, func(context.Context, string, string, time.Time) (bool, error) {
		called = true
		return true, nil
	})
	w := idemPost(r, "/api/v1/sessions/t1/feedback", "")
	if w.Code != http.StatusOK || called {
		t.Fatalf("request without key: code=%d lookup=%v", w.Code, called)
	}
	if !strings.Contains(w.Body.String(), `"replay":false`) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestIdempotency_ScopedLookupMarksReplay(t *testing.T) {
	var calls []lookupCall
	r := idemRouter(IdempotencyOptions{}, func(_ context.Context, scope, key string, now time.Time) (bool, error) {
		calls = append(calls, lookupCall{scope, key})
		if now.Location() != time.UTC {
			t.Errorf("lookup time not UTC")
		}
		return key == "seen", nil
	})

	w := idemPost(r, "/api/v1/sessions/tok-1/feedback", "seen")
	body := w.Body.String()
	if !strings.Contains(body, `"replay":true`) || !strings.Contains(body, `"bypass":true`) || !strings.Contains(body, `"key":"seen"`) {
		t.Fatalf("replay not marked: %s", body)
	}

	w = idemPost(r, "/api/v1/sessions/tok-1/feedback", "fresh")
	if !strings.Contains(w.Body.String(), `"replay":false`) {
		t.Fatalf("fresh key marked as replay: %s", w.Body.String())
	}

	if len(calls) != 2 || calls[0] != (lookupCall{"tok-1", "seen"}) {
		t.Fatalf("lookup calls = %+v", calls)
	}
}

func TestIdempotency_EmptyScopeSkipsLookup(t *testing.T) {
	called := false
	r := idemRouter(IdempotencyOptions{}, func(context.Context, string, string, time.Time) (bool, error) {
		called = true
		return true, nil
	})
	w := idemPost(r, "/functions/v1/orcamento-chat", "k-1")
	if called {
		t.Fatalf("lookup ran without a scope")
	}
	if !strings.Contains(w.Body.String(), `"key":"k-1"`) || !strings.Contains(w.Body.String(), `"replay":false`) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestIdempotency_LookupErrorDoesNotBlock(t *testing.T) {
	r := idemRouter(IdempotencyOptions{}, func(context.Context, string, string, time.Time) (bool, error) {
		return false, context.DeadlineExceeded
	})
	if w := idemPost(r, "/api/v1/sessions/t1/feedback", "k"); w.Code != http.StatusOK {
		t.Fatalf("lookup error blocked request: %d", w.Code)
	}
}
