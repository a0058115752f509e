package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func sseChunk(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "c1",
		"object":  "chat.completion.chunk",
		"created": 1,
		"model":   "test-model",
		"choices": []any{map[string]any{
			"index":         0,
			"delta":         map[string]any{"content": content},
			"finish_reason": nil,
		}},
	})
	return "data: " + string(b) + "\n\n"
}

func newGateway(t *testing.T, h http.HandlerFunc) (*OpenAIClient, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewOpenAI(Config{BaseURL: srv.URL, APIKey: "k", Model: "test-model"}), &calls
}

func TestStream_YieldsDeltasInOrder(t *testing.T) {
	var body map[string]any
	c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("Olá"))
		fmt.Fprint(w, sseChunk(""))
		fmt.Fprint(w, sseChunk(", tudo bem?"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	s, err := c.Stream(context.Background(), Request{
		System: "sys",
		Turns:  []Turn{{Role: "user", Content: "oi"}, {Role: "assistant", Content: "olá"}, {Role: "user", Content: "preço?"}},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer s.Close()

	var got []string
	for s.Next() {
		got = append(got, s.Delta())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if strings.Join(got, "|") != "Olá|, tudo bem?" {
		t.Fatalf("deltas = %q", got)
	}

	msgs, _ := body["messages"].([]any)
	if len(msgs) != 4 {
		t.Fatalf("expected system + 3 turns, got %d", len(msgs))
	}
	if first := msgs[0].(map[string]any); first["role"] != "system" {
		t.Fatalf("first message role = %v", first["role"])
	}
	if body["model"] != "test-model" || body["stream"] != true {
		t.Fatalf("unexpected request body: %v", body)
	}
}

func TestStream_UpstreamRejections(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusPaymentRequired, ErrQuotaExceeded},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c, calls := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				fmt.Fprint(w, `{"error":{"message":"nope","type":"x"}}`)
			})
			s, err := c.Stream(context.Background(), Request{Turns: []Turn{{Role: "user", Content: "oi"}}})
			if s != nil {
				t.Fatalf("expected nil stream on rejection")
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v; want %v", err, tc.want)
			}
			if n := atomic.LoadInt32(calls); n != 1 {
				t.Fatalf("expected exactly one upstream call (no retries), got %d", n)
			}
		})
	}
}

func TestComplete_SendsSchemaAndReturnsContent(t *testing.T) {
	var body map[string]any
	c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","created":1,"model":"synth",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"resumo\":\"ok\"}"}}]}`)
	})

	temp := 0.2
	out, err := c.Complete(context.Background(), Request{
		System:      "synth",
		Turns:       []Turn{{Role: "user", Content: "oi"}},
		Model:       "synth",
		Temperature: &temp,
		Schema:      map[string]any{"type": "object"},
		SchemaName:  "proposta",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"resumo":"ok"}` {
		t.Fatalf("content = %q", out)
	}
	if body["model"] != "synth" {
		t.Fatalf("model override not sent: %v", body["model"])
	}
	if body["temperature"] != 0.2 {
		t.Fatalf("temperature = %v", body["temperature"])
	}
	rf, _ := body["response_format"].(map[string]any)
	if rf["type"] != "json_schema" {
		t.Fatalf("response_format = %v", rf)
	}
	js, _ := rf["json_schema"].(map[string]any)
	if js["name"] != "proposta" {
		t.Fatalf("schema name = %v", js["name"])
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	})
	if _, err := c.Complete(context.Background(), Request{}); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("err = %v; want ErrEmptyCompletion", err)
	}
}

func TestComplete_RateLimited(t *testing.T) {
	c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
	})
	if _, err := c.Complete(context.Background(), Request{}); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v; want ErrRateLimited", err)
	}
}

func TestClassify_PassThrough(t *testing.T) {
	base := errors.New("boom")
	if got := classify(base); got != base {
		t.Fatalf("classify changed unrelated error: %v", got)
	}
	if classify(nil) != nil {
		t.Fatalf("classify(nil) should be nil")
	}
	if outcome(nil) != "ok" || outcome(base) != "error" {
		t.Fatalf("unexpected outcome labels")
	}
}
