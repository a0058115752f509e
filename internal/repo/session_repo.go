// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Session model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a session is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Conditional updates whose guard no longer holds return ErrStaleWrite.
//   - On other DB errors the raw gorm error is propagated.
//
// Functions:
//
//   - CreateSession(ctx, db, vendorID, token, clientName, address) -> *domain.Session, error
//   - GetSessionByToken(ctx, db, token) -> *domain.Session, error
//   - CountSessions / ListSessionsPage(ctx, db, vendorID, ...) for pagination
//   - TransitionSession(ctx, db, id, from, to) -> error
//   - SaveProposal(ctx, db, id, expectedVersion, ProposalWrite) -> int, error
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
)

// CreateSession inserts a new active Session owned by vendorID.
// The session ID is a random UUID and CreatedAt is set to UTC.
func CreateSession(ctx context.Context, db *gorm.DB, vendorID, token, clientName, address string) (*domain.Session, error) {
	now := time.Now().UTC()
	s := &domain.Session{
		ID:         uuid.NewString(),
		Token:      token,
		VendorID:   vendorID,
		ClientName: clientName,
		Address:    address,
		Status:     domain.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return s, nil
}

// GetSessionByToken fetches a session by its public token, or ErrNotFound.
func GetSessionByToken(ctx context.Context, db *gorm.DB, token string) (*domain.Session, error) {
	var s domain.Session
	if err := db.WithContext(ctx).Where("token = ?", token).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSession fetches a session by primary key, or ErrNotFound.
func GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.Session, error) {
	var s domain.Session
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CountSessions returns the total number of sessions issued by vendorID.
func CountSessions(ctx context.Context, db *gorm.DB, vendorID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("vendor_id = ?", vendorID).
		Count(&total).Error
	return total, err
}

// ListSessionsPage returns a page of vendorID's sessions, most recent first.
// The caller computes offset and limit.
func ListSessionsPage(ctx context.Context, db *gorm.DB, vendorID string, offset, limit int) ([]domain.Session, error) {
	var out []domain.Session
	err := db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// TransitionSession moves the session from one status to the next. The
// update only applies while the stored status still equals from; otherwise
// ErrStaleWrite is returned.
func TransitionSession(ctx context.Context, db *gorm.DB, id string, from, to domain.SessionStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

// ProposalWrite is the payload of a successful synthesis.
type ProposalWrite struct {
	Text       string
	Structured datatypes.JSON
	At         time.Time
}

// SaveProposal stores a synthesized proposal, moves the session to
// proposal_generated and bumps proposal_version. The write is conditional on
// the version the caller read (optimistic concurrency) and on the session
// still being in a status that accepts a proposal; when either guard fails it
// returns ErrStaleWrite. On success it returns the new version.
func SaveProposal(ctx context.Context, db *gorm.DB, id string, expectedVersion int, w ProposalWrite) (int, error) {
	var structured any
	if len(w.Structured) > 0 {
		structured = w.Structured
	}
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ? AND proposal_version = ? AND status IN ?", id, expectedVersion,
			[]domain.SessionStatus{domain.StatusActive, domain.StatusProposalGenerated}).
		Updates(map[string]any{
			"proposal":         w.Text,
			"proposal_json":    structured,
			"proposal_version": gorm.Expr("proposal_version + 1"),
			"proposal_at":      w.At.UTC(),
			"status":           domain.StatusProposalGenerated,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrStaleWrite
	}
	return expectedVersion + 1, nil
}
