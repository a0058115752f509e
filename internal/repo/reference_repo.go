package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
)

// MaxReferenceRows caps every reference-data read.
const MaxReferenceRows = 30

func clampReference(limit int) int {
	if limit <= 0 || limit > MaxReferenceRows {
		return MaxReferenceRows
	}
	return limit
}

// RecentDeals returns up to limit deals, most recent first. limit is clamped
// to MaxReferenceRows.
func RecentDeals(ctx context.Context, db *gorm.DB, limit int) ([]domain.Deal, error) {
	var out []domain.Deal
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Limit(clampReference(limit)).
		Find(&out).Error
	return out, err
}

// RecentCustomers returns up to limit customers, most recent first. limit is
// clamped to MaxReferenceRows.
func RecentCustomers(ctx context.Context, db *gorm.DB, limit int) ([]domain.Customer, error) {
	var out []domain.Customer
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Limit(clampReference(limit)).
		Find(&out).Error
	return out, err
}

// CreateDeal inserts a reference deal (seeding and tests).
func CreateDeal(ctx context.Context, db *gorm.DB, d *domain.Deal) error {
	return db.WithContext(ctx).Create(d).Error
}

// CreateCustomer inserts a reference customer (seeding and tests).
func CreateCustomer(ctx context.Context, db *gorm.DB, c *domain.Customer) error {
	return db.WithContext(ctx).Create(c).Error
}
