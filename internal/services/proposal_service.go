// Package services – ProposalService
//
// ProposalService turns a session's conversation into a commercial proposal
// with one non-streamed model call. The persisted log is re-read on every
// call; the caller's copy of the conversation is never trusted.
//
// The proposal is stored verbatim. When the output parses as a structured
// proposal the structure is stored alongside it; otherwise the session keeps
// only the text and readers fall back to a best-effort equipment scan.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
	"github.com/tbourn/go-orcamento-backend/internal/llm"
	"github.com/tbourn/go-orcamento-backend/internal/observability"
	"github.com/tbourn/go-orcamento-backend/internal/proposal"
	"github.com/tbourn/go-orcamento-backend/internal/repo"
)

const (
	proposalSchemaName        = "proposta_comercial"
	proposalSchemaDescription = "Proposta comercial estruturada a partir da vistoria."
)

// ProposalService synthesizes and reads proposals.
type ProposalService struct {
	DB        *gorm.DB
	LLM       llm.Client
	Reference ReferenceProvider

	Model       string
	Temperature *float64
}

// Result is a stored proposal as presented to callers.
type Result struct {
	Session *domain.Session

	Text      string
	Proposal  *proposal.Proposal // nil in raw-text mode
	Totals    proposal.Totals
	Equipment []proposal.Equipment
	Version   int
}

// Structured reports whether the proposal parsed into items.
func (r *Result) Structured() bool { return r.Proposal != nil }

// Generate synthesizes a new proposal for the session. expectedVersion, when
// non-nil, must equal the stored proposal version.
func (s *ProposalService) Generate(ctx context.Context, token string, expectedVersion *int) (*Result, error) {
	ctx, span := otel.Tracer("services/ProposalService").Start(ctx, "Generate")
	defer span.End()

	sess, err := lookupSession(ctx, s.DB, token)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))

	if !sess.Status.Chattable() {
		return nil, ErrInvalidStatus
	}
	if expectedVersion != nil && *expectedVersion != sess.ProposalVersion {
		return nil, ErrProposalConflict
	}

	users, assistants, err := repo.CountMessagesByRole(ctx, s.DB, sess.ID)
	if err != nil {
		return nil, err
	}
	if users < 1 || assistants < 1 {
		return nil, ErrNotEnoughHistory
	}

	history, err := repo.ListMessages(ctx, s.DB, sess.ID)
	if err != nil {
		return nil, err
	}
	turns := make([]llm.Turn, 0, len(history))
	var userText []string
	for _, m := range history {
		turns = append(turns, llm.Turn{Role: m.Role, Content: m.Content})
		if m.Role == domain.RoleUser {
			userText = append(userText, m.Content)
		}
	}

	reference := ""
	if s.Reference != nil {
		reference = s.Reference.Context(ctx, strings.Join(userText, "\n"))
	}

	raw, err := s.LLM.Complete(ctx, llm.Request{
		System:            synthesisSystemPrompt(reference),
		Turns:             turns,
		Model:             s.Model,
		Temperature:       s.Temperature,
		Schema:            proposal.Schema(),
		SchemaName:        proposalSchemaName,
		SchemaDescription: proposalSchemaDescription,
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, llm.ErrEmptyCompletion) {
			return nil, ErrEmptyProposal
		}
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyProposal
	}

	var structured datatypes.JSON
	p, ok := proposal.Parse(raw)
	if ok {
		b, err := proposal.Marshal(p)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("structured proposal not stored")
			p = nil
		} else {
			structured = datatypes.JSON(b)
		}
	} else {
		log.Info().Str("session_id", sess.ID).Msg("proposal output is not structured; keeping raw text")
	}

	now := time.Now().UTC()
	version, err := repo.SaveProposal(ctx, s.DB, sess.ID, sess.ProposalVersion, repo.ProposalWrite{
		Text:       raw,
		Structured: structured,
		At:         now,
	})
	if errors.Is(err, repo.ErrStaleWrite) {
		return nil, ErrProposalConflict
	}
	if err != nil {
		return nil, err
	}
	observability.IncProposal(p != nil)

	sess.Proposal = &raw
	sess.ProposalJSON = structured
	sess.ProposalVersion = version
	sess.ProposalAt = &now
	sess.Status = domain.StatusProposalGenerated
	return buildResult(sess, p), nil
}

// Current returns the stored proposal, or ErrNoProposal.
func (s *ProposalService) Current(ctx context.Context, token string) (*Result, error) {
	sess, err := lookupSession(ctx, s.DB, token)
	if err != nil {
		return nil, err
	}
	return currentProposal(sess)
}

func currentProposal(sess *domain.Session) (*Result, error) {
	if sess.Proposal == nil || strings.TrimSpace(*sess.Proposal) == "" {
		return nil, ErrNoProposal
	}
	var p *proposal.Proposal
	if sess.HasStructuredProposal() {
		decoded, err := proposal.Unmarshal(sess.ProposalJSON)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("stored proposal structure unreadable; using raw text")
		} else {
			p = decoded
		}
	}
	return buildResult(sess, p), nil
}

func buildResult(sess *domain.Session, p *proposal.Proposal) *Result {
	r := &Result{Session: sess, Proposal: p, Version: sess.ProposalVersion}
	if sess.Proposal != nil {
		r.Text = *sess.Proposal
	}
	if p != nil {
		r.Totals = proposal.Compute(p)
	} else {
		r.Totals = proposal.Compute(nil)
		r.Equipment = proposal.ExtractEquipment(r.Text)
	}
	return r
}
