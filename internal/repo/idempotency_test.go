package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
)

func TestGetIdempotency_EmptyScope_ReturnsNotFound(t *testing.T) {
	db := newRepoDB(t)
	now := time.Now().UTC()

	rec, err := GetIdempotency(context.Background(), db, "   ", "k1", now)
	if rec != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound) for empty session, got (%v, %v)", rec, err)
	}
	rec, err = GetIdempotency(context.Background(), db, "s1", "", now)
	if rec != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound) for empty key, got (%v, %v)", rec, err)
	}
}

func TestIdempotency_CreateGetExpireDuplicate(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := db.Create(&domain.Idempotency{ID: "old", SessionID: "s1", Key: "expired", MessageID: "m0",
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "s1", "expired", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired record to be invisible, got %v", err)
	}

	rec, err := CreateIdempotency(ctx, db, "s1", "k1", "m1", time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	got, err := GetIdempotency(ctx, db, "s1", "k1", now)
	if err != nil || got.ID != rec.ID || got.MessageID != "m1" {
		t.Fatalf("GetIdempotency: %+v %v", got, err)
	}
	if _, err := CreateIdempotency(ctx, db, "s1", "k1", "m2", time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	n, err := PurgeIdempotency(ctx, db, now)
	if err != nil || n != 1 {
		t.Fatalf("PurgeIdempotency: n=%d err=%v", n, err)
	}
}

func TestCreateIdempotency_Error_NoTable(t *testing.T) {
	db := newBareDB(t)
	_, err := CreateIdempotency(context.Background(), db, "s1", "k1", "m1", time.Hour)
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected raw DB error, got %v", err)
	}
}
