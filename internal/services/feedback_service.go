// Package services – FeedbackService
//
// This file implements the FeedbackService, which records a vendor's
// assessment of a generated proposal or summary. Entries are additive; a
// session may accumulate many and none is ever updated.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
	"github.com/tbourn/go-orcamento-backend/internal/repo"
)

// MaxFeedbackNotes bounds the free-text notes of one entry, in runes.
const MaxFeedbackNotes = 2000

// FeedbackInput is the caller-provided part of a feedback entry.
type FeedbackInput struct {
	Subject  string
	Adequate string
	Notes    string
	Rating   int
}

// FeedbackService implements the use-cases around proposal feedback.
type FeedbackService struct {
	DB *gorm.DB
}

// Leave records feedback on the session identified by token.
//
// Validation:
//   - Subject must be "proposal" or "summary".
//   - Adequate must be "sim", "parcial" or "nao".
//   - Rating must be within 1..5.
//   - Notes may not exceed MaxFeedbackNotes runes.
//
// Feedback on a proposal requires one to exist (ErrNoProposal).
func (s *FeedbackService) Leave(ctx context.Context, token, authorID string, in FeedbackInput) (*domain.Feedback, error) {
	in.Subject = strings.ToLower(strings.TrimSpace(in.Subject))
	in.Adequate = strings.ToLower(strings.TrimSpace(in.Adequate))
	in.Notes = strings.TrimSpace(in.Notes)

	switch in.Subject {
	case domain.SubjectProposal, domain.SubjectSummary:
	default:
		return nil, ErrInvalidFeedback
	}
	switch in.Adequate {
	case domain.AdequateYes, domain.AdequatePartial, domain.AdequateNo:
	case "não":
		in.Adequate = domain.AdequateNo
	default:
		return nil, ErrInvalidFeedback
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidFeedback
	}
	if utf8.RuneCountInString(in.Notes) > MaxFeedbackNotes {
		return nil, ErrInvalidFeedback
	}

	sess, err := lookupSession(ctx, s.DB, token)
	if err != nil {
		return nil, err
	}
	if in.Subject == domain.SubjectProposal && (sess.Proposal == nil || *sess.Proposal == "") {
		return nil, ErrNoProposal
	}

	return repo.CreateFeedback(ctx, s.DB, sess.ID, repo.FeedbackFields{
		Subject:  in.Subject,
		Adequate: in.Adequate,
		Notes:    in.Notes,
		Rating:   in.Rating,
		AuthorID: authorID,
	})
}

// List returns the session's feedback, newest first.
func (s *FeedbackService) List(ctx context.Context, token string) ([]domain.Feedback, error) {
	sess, err := lookupSession(ctx, s.DB, token)
	if err != nil {
		return nil, err
	}
	return repo.ListFeedback(ctx, s.DB, sess.ID)
}
