package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-orcamento-backend/internal/llm"
	"github.com/tbourn/go-orcamento-backend/internal/services"
)

func TestFail_ServerErrorIsLoggedWithEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) { fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusInternalServerError || resp.RequestID != "rid-500" || resp.Code != ErrCodeInternal {
		t.Fatalf("unexpected response %d %+v", w.Code, resp)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got %q", buf.String())
	}
}

func TestFail_ClientErrorIsNotLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) { c.Set("logger", &logger) })
	r.GET("/x", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusNotFound || buf.Len() != 0 {
		t.Fatalf("code=%d log=%q", w.Code, buf.String())
	}
}

func TestErrorStatus_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrSessionNotFound, 404, ErrCodeSessionNotFound},
		{services.ErrMediaNotFound, 404, ErrCodeMediaNotFound},
		{services.ErrNoProposal, 404, ErrCodeNoProposal},
		{services.ErrClientNameRequired, 400, ErrCodeBadRequest},
		{services.ErrEmptyPrompt, 400, ErrCodeEmptyPrompt},
		{services.ErrTooLong, 400, ErrCodePromptTooLong},
		{services.ErrInvalidFeedback, 400, ErrCodeInvalidFeedback},
		{services.ErrProposalConflict, 409, ErrCodeProposalConflict},
		{services.ErrInvalidStatus, 409, ErrCodeInvalidStatus},
		{services.ErrNotEnoughHistory, 422, ErrCodeNotEnoughHistory},
		{services.ErrConversationTooLong, 422, ErrCodeConversationTooLong},
		{fmt.Errorf("%w: upstream body", llm.ErrQuotaExceeded), 402, ErrCodeQuotaExceeded},
		{fmt.Errorf("%w: upstream body", llm.ErrRateLimited), 429, ErrCodeRateLimited},
		{services.ErrEmptyProposal, 502, ErrCodeEmptyProposal},
		{services.ErrStorageUnavailable, 503, ErrCodeStorageUnavailable},
		{errors.New("disk on fire"), 500, ErrCodeInternal},
	}
	for _, tc := range cases {
		status, code := errorStatus(tc.err)
		if status != tc.status || code != tc.code {
			t.Errorf("errorStatus(%v) = %d %s; want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}

func TestFailErr_HidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { failErr(c, errors.New("dsn=postgres://secret")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "secret") {
		t.Fatalf("internal detail leaked: %d %s", w.Code, w.Body.String())
	}
}
