// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model. The message log is append-only: there is no update or delete path.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
)

// appendAttempts bounds retries when two writers race for the same seq.
const appendAttempts = 5

// AppendMessage inserts a message at the end of the session's log. Seq is
// assigned as max(seq)+1; a concurrent append that wins the same seq makes the
// unique index reject this insert, in which case the next seq is tried.
//
// Each attempt runs in its own transaction, which GORM turns into a savepoint
// when db is already a transaction. PostgreSQL aborts the enclosing
// transaction on a unique violation unless the failed attempt is rolled back
// to a savepoint.
func AppendMessage(ctx context.Context, db *gorm.DB, sessionID, role, content string) (*domain.Message, error) {
	var lastErr error
	for i := 0; i < appendAttempts; i++ {
		var m *domain.Message
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var next int
			if err := tx.Raw("SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?", sessionID).
				Scan(&next).Error; err != nil {
				return err
			}
			m = &domain.Message{
				ID:        uuid.NewString(),
				SessionID: sessionID,
				Seq:       next,
				Role:      role,
				Content:   content,
				CreatedAt: time.Now().UTC(),
			}
			return tx.Create(m).Error
		})
		if err == nil {
			return m, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// ListMessages returns the full log of a session in replay order (seq ASC).
func ListMessages(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE session_id = ?", sessionID).
		Scan(&total).Error
	return total, err
}

// CountMessagesByRole returns the number of user and assistant turns.
func CountMessagesByRole(ctx context.Context, db *gorm.DB, sessionID string) (users, assistants int64, err error) {
	type row struct {
		Role  string
		Total int64
	}
	var rows []row
	err = db.WithContext(ctx).
		Model(&domain.Message{}).
		Select("role, COUNT(*) AS total").
		Where("session_id = ?", sessionID).
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		switch r.Role {
		case domain.RoleUser:
			users = r.Total
		case domain.RoleAssistant:
			assistants = r.Total
		}
	}
	return users, assistants, nil
}

// ListMessagesPage returns a paginated slice of the log ordered by seq.
func ListMessagesPage(ctx context.Context, db *gorm.DB, sessionID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
