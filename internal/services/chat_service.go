// Package services – ChatService
//
// ChatService relays a quote conversation to the language model. One call:
//
//  1. resolves the session token (only active / proposal_generated sessions
//     accept turns; anything else reads as not found and nothing is written);
//  2. appends the caller's latest user turn to the log, exactly once per
//     Idempotency-Key;
//  3. replays the persisted log, which is the source of truth, with the system
//     prompt and reference section;
//  4. waits for the first upstream event so rate-limit and quota rejections
//     surface before any byte reaches the client;
//  5. hands the stream to a background task that tees each delta to the
//     client and, once the upstream stream completes, appends one assistant
//     message with the full text.
//
// The background task runs detached from the request: a client that goes
// away stops receiving deltas but the stream is still drained and persisted.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
	"github.com/tbourn/go-orcamento-backend/internal/llm"
	"github.com/tbourn/go-orcamento-backend/internal/repo"
	"github.com/tbourn/go-orcamento-backend/internal/worker"
)

// Runner starts background tasks; *worker.Group implements it.
type Runner interface {
	Go(ctx context.Context, name string, fn func(context.Context) error)
}

var _ Runner = (*worker.Group)(nil)

// ChatService coordinates the streamed chat relay.
type ChatService struct {
	DB        *gorm.DB
	LLM       llm.Client
	Reference ReferenceProvider
	Workers   Runner

	Model       string
	Temperature *float64

	// Optional guards
	MaxPromptRunes     int
	MaxSessionMessages int // 0 disables the bound

	IdempotencyTTL time.Duration
	// StreamBuffer is the capacity of the delta channel handed to the client.
	StreamBuffer int
}

// RelayInput is one chat call.
type RelayInput struct {
	Token          string
	Turns          []llm.Turn
	IdempotencyKey string
}

// Reply is a running relay. Deltas is closed when the upstream stream ends;
// Err is valid after that.
type Reply struct {
	SessionID     string
	UserMessageID string
	// Replayed is true when the user turn had already been recorded under
	// the same idempotency key.
	Replayed bool

	deltas chan string
	err    error
}

// Deltas streams the reply text as it arrives.
func (r *Reply) Deltas() <-chan string { return r.deltas }

// Err reports an upstream failure. Call it only after Deltas is closed.
func (r *Reply) Err() error { return r.err }

// Relay starts a streamed reply for in. ctx is the caller's request context;
// its cancellation stops delivery to the caller but not the relay itself.
func (s *ChatService) Relay(ctx context.Context, in RelayInput) (*Reply, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Relay")
	defer span.End()

	sess, err := lookupSession(ctx, s.DB, in.Token)
	if err != nil {
		return nil, err
	}
	if !sess.Status.Chattable() {
		return nil, ErrSessionNotFound
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))

	prompt, hasPrompt, err := s.latestPrompt(in.Turns)
	if err != nil {
		return nil, err
	}

	reply := &Reply{SessionID: sess.ID}
	if hasPrompt {
		if err := s.appendUserTurn(ctx, sess.ID, prompt, in.IdempotencyKey, reply); err != nil {
			return nil, err
		}
	} else if err := s.checkBound(ctx, sess.ID, 1); err != nil {
		return nil, err
	}

	history, err := repo.ListMessages(ctx, s.DB, sess.ID)
	if err != nil {
		return nil, err
	}
	turns := make([]llm.Turn, 0, len(history))
	lastUser := ""
	for _, m := range history {
		turns = append(turns, llm.Turn{Role: m.Role, Content: m.Content})
		if m.Role == domain.RoleUser {
			lastUser = m.Content
		}
	}

	reference := ""
	if s.Reference != nil {
		reference = s.Reference.Context(ctx, lastUser)
	}

	// The upstream call must outlive the client request.
	upstreamCtx := context.WithoutCancel(ctx)
	stream, err := s.LLM.Stream(upstreamCtx, llm.Request{
		System:      chatSystemPrompt(reference),
		Turns:       turns,
		Model:       s.Model,
		Temperature: s.Temperature,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	buf := s.StreamBuffer
	if buf <= 0 {
		buf = 64
	}
	reply.deltas = make(chan string, buf)
	clientGone := ctx.Done()

	s.Workers.Go(ctx, "chat.relay", func(bg context.Context) error {
		return s.pump(bg, sess.ID, stream, reply, clientGone)
	})
	return reply, nil
}

// pump drains stream, tees deltas to the caller while it listens, then
// persists the assistant message when the stream completed cleanly.
func (s *ChatService) pump(ctx context.Context, sessionID string, stream llm.Stream, reply *Reply, clientGone <-chan struct{}) error {
	_, span := otel.Tracer("services/ChatService").Start(ctx, "pump",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	var full strings.Builder
	listening := true
	for stream.Next() {
		d := stream.Delta()
		full.WriteString(d)
		if !listening {
			continue
		}
		select {
		case reply.deltas <- d:
		case <-clientGone:
			listening = false
			log.Info().Str("session_id", sessionID).Msg("client left; draining reply in background")
		}
	}
	streamErr := stream.Err()
	_ = stream.Close()

	reply.err = streamErr
	close(reply.deltas)

	if streamErr != nil {
		span.RecordError(streamErr)
		return fmt.Errorf("upstream stream failed: %w", streamErr)
	}
	text := full.String()
	if strings.TrimSpace(text) == "" {
		log.Warn().Str("session_id", sessionID).Msg("empty assistant reply not persisted")
		return nil
	}
	if _, err := repo.AppendMessage(ctx, s.DB, sessionID, domain.RoleAssistant, text); err != nil {
		return fmt.Errorf("persist assistant message: %w", err)
	}
	return nil
}

// latestPrompt validates the caller's last turn when it is a user turn.
func (s *ChatService) latestPrompt(turns []llm.Turn) (string, bool, error) {
	if len(turns) == 0 {
		return "", false, nil
	}
	last := turns[len(turns)-1]
	if last.Role != domain.RoleUser {
		return "", false, nil
	}
	prompt := strings.TrimSpace(last.Content)
	if prompt == "" {
		return "", false, ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(prompt) > s.MaxPromptRunes {
		return "", false, ErrTooLong
	}
	return prompt, true, nil
}

// appendUserTurn records the prompt unless the idempotency key already did.
func (s *ChatService) appendUserTurn(ctx context.Context, sessionID, prompt, key string, reply *Reply) error {
	if key != "" {
		rec, err := repo.GetIdempotency(ctx, s.DB, sessionID, key, time.Now().UTC())
		switch {
		case err == nil:
			reply.UserMessageID = rec.MessageID
			reply.Replayed = true
			return s.checkBound(ctx, sessionID, 1)
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}
	}

	if err := s.checkBound(ctx, sessionID, 2); err != nil {
		return err
	}

	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.AppendMessage(ctx, tx, sessionID, domain.RoleUser, prompt)
		if err != nil {
			return err
		}
		reply.UserMessageID = m.ID
		if key != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, sessionID, key, m.ID, ttl); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent retry with the same key won; reuse its message.
		rec, gerr := repo.GetIdempotency(ctx, s.DB, sessionID, key, time.Now().UTC())
		if gerr != nil {
			return gerr
		}
		reply.UserMessageID = rec.MessageID
		reply.Replayed = true
		return nil
	}
	return err
}

// checkBound fails when adding n more messages would exceed the session
// bound.
func (s *ChatService) checkBound(ctx context.Context, sessionID string, n int64) error {
	if s.MaxSessionMessages <= 0 {
		return nil
	}
	count, err := repo.CountMessages(ctx, s.DB, sessionID)
	if err != nil {
		return err
	}
	if count+n > int64(s.MaxSessionMessages) {
		return ErrConversationTooLong
	}
	return nil
}
