package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
)

func TestAppendMessage_AssignsMonotonicSeq(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	s := seedSession(t, db, "tok")

	roles := []string{domain.RoleUser, domain.RoleAssistant, domain.RoleUser}
	for i, r := range roles {
		m, err := AppendMessage(ctx, db, s.ID, r, fmt.Sprintf("turn %d", i))
		if err != nil {
			t.Fatalf("AppendMessage %d: %v", i, err)
		}
		if m.Seq != i+1 {
			t.Fatalf("expected seq %d, got %d", i+1, m.Seq)
		}
	}

	log, err := ListMessages(ctx, db, s.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(log) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(log))
	}
	for i, m := range log {
		if m.Role != roles[i] || m.Content != fmt.Sprintf("turn %d", i) {
			t.Fatalf("replay order broken at %d: %+v", i, m)
		}
	}

	users, assistants, err := CountMessagesByRole(ctx, db, s.ID)
	if err != nil || users != 2 || assistants != 1 {
		t.Fatalf("CountMessagesByRole: users=%d assistants=%d err=%v", users, assistants, err)
	}
}

// TestAppendMessage_RetriesSeqConflictInsideTransaction makes the first
// insert lose its seq to a row written just before it, then checks the retry
// lands and the enclosing transaction is still usable and commits.
func TestAppendMessage_RetriesSeqConflictInsideTransaction(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	s := seedSession(t, db, "tok")

	creates := 0
	err := db.Callback().Create().Before("gorm:create").Register("test:seq_race", func(d *gorm.DB) {
		m, ok := d.Statement.Dest.(*domain.Message)
		if !ok {
			return
		}
		creates++
		if creates > 1 {
			return
		}
		d.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO messages (id, session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			uuid.NewString(), s.ID, m.Seq, domain.RoleAssistant, "concurrent reply", time.Now().UTC(),
		)
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	t.Cleanup(func() { _ = db.Callback().Create().Remove("test:seq_race") })

	var appended *domain.Message
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := AppendMessage(ctx, tx, s.ID, domain.RoleUser, "oi")
		if err != nil {
			return err
		}
		appended = m
		_, err = CreateIdempotency(ctx, tx, s.ID, "key-1", m.ID, time.Hour)
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if creates != 2 {
		t.Fatalf("expected one retry, got %d create attempts", creates)
	}

	log, err := ListMessages(ctx, db, s.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(log) != 1 || log[len(log)-1].ID != appended.ID || log[len(log)-1].Content != "oi" {
		t.Fatalf("unexpected log after retry: %+v", log)
	}
	if _, err := GetIdempotency(ctx, db, s.ID, "key-1", time.Now().UTC()); err != nil {
		t.Fatalf("idempotency written after the retry was lost: %v", err)
	}
}

func TestAppendMessage_RejectsUnknownRole(t *testing.T) {
	db := newRepoDB(t)
	s := seedSession(t, db, "tok")
	if _, err := AppendMessage(context.Background(), db, s.ID, "system", "x"); err == nil {
		t.Fatalf("expected check violation for role=system")
	}
}

func TestListMessagesPage_And_Count(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	s := seedSession(t, db, "tok")
	for i := 0; i < 5; i++ {
		if _, err := AppendMessage(ctx, db, s.ID, domain.RoleUser, fmt.Sprint(i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	total, err := CountMessages(ctx, db, s.ID)
	if err != nil || total != 5 {
		t.Fatalf("CountMessages: %d %v", total, err)
	}
	page, err := ListMessagesPage(ctx, db, s.ID, 2, 2)
	if err != nil || len(page) != 2 || page[0].Seq != 3 || page[1].Seq != 4 {
		t.Fatalf("unexpected page: %+v err=%v", page, err)
	}

	got, err := GetMessage(ctx, db, page[0].ID)
	if err != nil || got.Content != "2" {
		t.Fatalf("GetMessage: %+v %v", got, err)
	}
	if _, err := GetMessage(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCountMessages_Error_NoTable(t *testing.T) {
	db := newBareDB(t)
	if _, err := CountMessages(context.Background(), db, "s"); err == nil {
		t.Fatalf("expected error when table missing")
	}
}
