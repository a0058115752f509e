package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
)

// MediaFields describes an object already written to storage.
type MediaFields struct {
	FileName    string
	StorageKey  string
	Kind        string
	ContentType string
	Size        int64
}

// CreateMedia records an uploaded object for a session.
func CreateMedia(ctx context.Context, db *gorm.DB, sessionID string, f MediaFields) (*domain.Media, error) {
	m := &domain.Media{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		FileName:    f.FileName,
		StorageKey:  f.StorageKey,
		Kind:        f.Kind,
		ContentType: f.ContentType,
		Size:        f.Size,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListMedia returns all media of a session in upload order.
func ListMedia(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.Media, error) {
	var out []domain.Media
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetMediaByName returns the most recent upload with the given file name, or
// ErrNotFound.
func GetMediaByName(ctx context.Context, db *gorm.DB, sessionID, fileName string) (*domain.Media, error) {
	var m domain.Media
	err := db.WithContext(ctx).
		Where("session_id = ? AND file_name = ?", sessionID, fileName).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
