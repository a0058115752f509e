// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
)

// SessionsStats returns the number of sessions issued by vendorID and the
// greatest UpdatedAt among them (nil when there are none).
func SessionsStats(ctx context.Context, db *gorm.DB, vendorID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Session{}).Where("vendor_id = ?", vendorID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// MessagesStats returns the number of messages in a session and the highest
// seq. Since the log is append-only, (count, lastSeq) changes exactly when the
// log does.
func MessagesStats(ctx context.Context, db *gorm.DB, sessionID string) (count int64, lastSeq int, err error) {
	var row struct {
		Total int64
		Last  int
	}
	err = db.WithContext(ctx).
		Raw("SELECT COUNT(*) AS total, COALESCE(MAX(seq), 0) AS last FROM messages WHERE session_id = ?", sessionID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Total, row.Last, nil
}
