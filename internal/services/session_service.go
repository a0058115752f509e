// Package services – SessionService
//
// This file implements SessionService, which issues quote sessions and walks
// them through their lifecycle:
//
//	active -> proposal_generated -> scope_validated -> report_sent
//
// The first step is taken by ProposalService; this service owns creation,
// lookup, listing and the two explicit vendor actions. Transitions are
// conditional updates, so a concurrent move yields ErrInvalidStatus instead
// of skipping a state.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
	"github.com/tbourn/go-orcamento-backend/internal/repo"
	"github.com/tbourn/go-orcamento-backend/internal/utils"
)

// SessionService provides session-level operations.
type SessionService struct {
	DB *gorm.DB

	// NameMaxLen caps stored client names by rune length.
	NameMaxLen int
	// NameLocale drives title-casing of client names.
	NameLocale language.Tag
}

// NewSessionService constructs a SessionService with Brazilian Portuguese
// name casing.
func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db, NameMaxLen: 160, NameLocale: language.BrazilianPortuguese}
}

// tokenAttempts bounds retries on the (unlikely) token collision.
const tokenAttempts = 3

// Create issues a new active session for vendorID.
func (s *SessionService) Create(ctx context.Context, vendorID, clientName, address string) (*domain.Session, error) {
	ctx, span := otel.Tracer("services/SessionService").Start(ctx, "Create",
		trace.WithAttributes(attribute.String("vendor.id", vendorID)))
	defer span.End()

	name := s.normalizeName(clientName)
	if name == "" {
		return nil, ErrClientNameRequired
	}
	address = utils.ClipRunes(collapseSpaces(address), 255)

	var lastErr error
	for i := 0; i < tokenAttempts; i++ {
		sess, err := repo.CreateSession(ctx, s.DB, vendorID, newToken(), name, address)
		if err == nil {
			span.SetAttributes(attribute.String("session.id", sess.ID))
			return sess, nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Get resolves a token to its session.
func (s *SessionService) Get(ctx context.Context, token string) (*domain.Session, error) {
	return s.byToken(ctx, token)
}

// ListPage returns a page of vendorID's sessions and the total count.
func (s *SessionService) ListPage(ctx context.Context, vendorID string, page, pageSize int) ([]domain.Session, int64, error) {
	ctx, span := otel.Tracer("services/SessionService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("vendor.id", vendorID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		))
	defer span.End()

	_, pageSize, offset := utils.Page(page, pageSize)

	total, err := repo.CountSessions(ctx, s.DB, vendorID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Session{}, 0, nil
	}
	items, err := repo.ListSessionsPage(ctx, s.DB, vendorID, offset, pageSize)
	return items, total, err
}

// Messages returns a page of the session's log in replay order.
func (s *SessionService) Messages(ctx context.Context, token string, page, pageSize int) ([]domain.Message, int64, error) {
	sess, err := s.byToken(ctx, token)
	if err != nil {
		return nil, 0, err
	}
	_, pageSize, offset := utils.Page(page, pageSize)
	total, err := repo.CountMessages(ctx, s.DB, sess.ID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}
	items, err := repo.ListMessagesPage(ctx, s.DB, sess.ID, offset, pageSize)
	return items, total, err
}

// ValidateScope records the vendor's confirmation of the proposal's scope.
func (s *SessionService) ValidateScope(ctx context.Context, token string) (*domain.Session, error) {
	return s.transition(ctx, token, domain.StatusProposalGenerated, domain.StatusScopeValidated)
}

// SendReport marks the validated proposal as sent to the customer.
func (s *SessionService) SendReport(ctx context.Context, token string) (*domain.Session, error) {
	return s.transition(ctx, token, domain.StatusScopeValidated, domain.StatusReportSent)
}

func (s *SessionService) transition(ctx context.Context, token string, from, to domain.SessionStatus) (*domain.Session, error) {
	ctx, span := otel.Tracer("services/SessionService").Start(ctx, "Transition",
		trace.WithAttributes(attribute.String("status.from", string(from)), attribute.String("status.to", string(to))))
	defer span.End()

	sess, err := s.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess.Status != from {
		return nil, ErrInvalidStatus
	}
	if err := repo.TransitionSession(ctx, s.DB, sess.ID, from, to); err != nil {
		if errors.Is(err, repo.ErrStaleWrite) {
			return nil, ErrInvalidStatus
		}
		return nil, err
	}
	return repo.GetSession(ctx, s.DB, sess.ID)
}

func (s *SessionService) byToken(ctx context.Context, token string) (*domain.Session, error) {
	return lookupSession(ctx, s.DB, token)
}

// lookupSession maps a missing or blank token to ErrSessionNotFound.
func lookupSession(ctx context.Context, db *gorm.DB, token string) (*domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := repo.GetSessionByToken(ctx, db, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *SessionService) normalizeName(name string) string {
	name = collapseSpaces(name)
	if name == "" {
		return ""
	}
	tag := s.NameLocale
	if tag == language.Und {
		tag = language.BrazilianPortuguese
	}
	name = cases.Title(tag, cases.NoLower).String(name)
	max := s.NameMaxLen
	if max <= 0 {
		max = 160
	}
	return utils.ClipRunes(name, max)
}

// newToken returns an opaque, URL-safe session token.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}
