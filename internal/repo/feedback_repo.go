// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Feedback model.
//
// Feedback is additive: a session may accumulate any number of entries and no
// uniqueness constraint applies. Validation of subject, adequacy and rating is
// enforced by the services layer and by DB check constraints.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
)

// FeedbackFields carries the user-provided part of a feedback row.
type FeedbackFields struct {
	Subject  string
	Adequate string
	Notes    string
	Rating   int
	AuthorID string
}

// CreateFeedback inserts a feedback row for the given session.
func CreateFeedback(ctx context.Context, db *gorm.DB, sessionID string, f FeedbackFields) (*domain.Feedback, error) {
	fb := &domain.Feedback{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Subject:   f.Subject,
		Adequate:  f.Adequate,
		Notes:     f.Notes,
		Rating:    f.Rating,
		AuthorID:  f.AuthorID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(fb).Error; err != nil {
		return nil, err
	}
	return fb, nil
}

// ListFeedback returns a session's feedback, newest first.
func ListFeedback(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at desc, id desc").
		Find(&out).Error
	return out, err
}
