package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-orcamento-backend/internal/observability"
)

// Config configures the OpenAI-compatible gateway client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	// HTTPClient overrides the transport (tests, proxies).
	HTTPClient *http.Client
}

// OpenAIClient implements Client over any OpenAI-compatible chat completions
// endpoint. Automatic retries are disabled: a failed call is reported once.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAI builds a client from cfg.
func NewOpenAI(cfg Config) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), model: cfg.Model}
}

func (c *OpenAIClient) params(req Request) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, t := range req.Turns {
		switch t.Role {
		case "user":
			msgs = append(msgs, openai.UserMessage(t.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		}
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	p := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    model,
	}
	if req.Temperature != nil {
		p.Temperature = openai.Float(*req.Temperature)
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		p.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        name,
					Description: openai.String(req.SchemaDescription),
					Schema:      req.Schema,
					// Lenient: models behind some gateways reject strict mode and
					// Parse tolerates drift anyway.
					Strict: openai.Bool(false),
				},
			},
		}
	}
	return p
}

// Complete performs a non-streamed call and returns the first choice's text.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, c.params(req))
	err = classify(err)
	if err == nil && len(resp.Choices) == 0 {
		err = ErrEmptyCompletion
	}
	observability.ObserveLLM(observability.ModeSynthesis, outcome(err), time.Since(start))
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream opens a streamed call and waits for its first event so upstream
// rejections come back as an error instead of an empty stream.
func (c *OpenAIClient) Stream(ctx context.Context, req Request) (Stream, error) {
	start := time.Now()
	raw := c.client.Chat.Completions.NewStreaming(ctx, c.params(req))
	s := &openAIStream{raw: raw, start: start}
	if !s.advance() {
		if err := s.Err(); err != nil {
			_ = raw.Close()
			return nil, err
		}
	}
	s.primed = true
	return s, nil
}

type openAIStream struct {
	raw   *ssestream.Stream[openai.ChatCompletionChunk]
	start time.Time

	delta    string
	err      error
	primed   bool // delta holds a chunk read by Stream that Next has not yet returned
	done     bool
	recorded bool
}

// advance reads until the next non-empty delta or the end of the stream.
func (s *openAIStream) advance() bool {
	for s.raw.Next() {
		chunk := s.raw.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if d := chunk.Choices[0].Delta.Content; d != "" {
			s.delta = d
			return true
		}
	}
	s.done = true
	s.delta = ""
	s.err = classify(s.raw.Err())
	s.record()
	return false
}

func (s *openAIStream) Next() bool {
	if s.primed {
		s.primed = false
		return !s.done
	}
	if s.done {
		return false
	}
	return s.advance()
}

func (s *openAIStream) Delta() string { return s.delta }

func (s *openAIStream) Err() error { return s.err }

func (s *openAIStream) Close() error {
	if !s.done {
		s.done = true
		s.record()
	}
	return s.raw.Close()
}

func (s *openAIStream) record() {
	if s.recorded {
		return
	}
	s.recorded = true
	observability.ObserveLLM(observability.ModeChat, outcome(s.err), time.Since(s.start))
	if s.err != nil {
		log.Warn().Err(s.err).Msg("llm stream ended with error")
	}
}
