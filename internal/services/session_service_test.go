package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
)

func TestSessionCreate_NormalizesName(t *testing.T) {
	svc := NewSessionService(newServiceDB(t))
	ctx := context.Background()

	s, err := svc.Create(ctx, "v1", "  condomínio   jardim  aurora ", " Rua das Flores,   100 ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ClientName != "Condomínio Jardim Aurora" {
		t.Fatalf("ClientName = %q", s.ClientName)
	}
	if s.Address != "Rua das Flores, 100" {
		t.Fatalf("Address = %q", s.Address)
	}
	if s.Status != domain.StatusActive || len(s.Token) != 32 || strings.Contains(s.Token, "-") {
		t.Fatalf("unexpected session: %+v", s)
	}

	got, err := svc.Get(ctx, s.Token)
	if err != nil || got.ID != s.ID {
		t.Fatalf("Get: %v %+v", err, got)
	}
}

func TestSessionCreate_RequiresName(t *testing.T) {
	svc := NewSessionService(newServiceDB(t))
	if _, err := svc.Create(context.Background(), "v1", "   ", ""); !errors.Is(err, ErrClientNameRequired) {
		t.Fatalf("want ErrClientNameRequired, got %v", err)
	}
}

func TestSessionCreate_ClipsLongNames(t *testing.T) {
	svc := NewSessionService(newServiceDB(t))
	svc.NameMaxLen = 10
	s, err := svc.Create(context.Background(), "v1", strings.Repeat("á", 40), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n := len([]rune(s.ClientName)); n != 10 {
		t.Fatalf("want 10 runes, got %d", n)
	}
}

func TestSessionGet_Unknown(t *testing.T) {
	svc := NewSessionService(newServiceDB(t))
	for _, tok := range []string{"", "  ", "missing"} {
		if _, err := svc.Get(context.Background(), tok); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("Get(%q): want ErrSessionNotFound, got %v", tok, err)
		}
	}
}

func TestSessionListPage(t *testing.T) {
	svc := NewSessionService(newServiceDB(t))
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		if _, err := svc.Create(ctx, "v1", name, ""); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := svc.Create(ctx, "v2", "other", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	items, total, err := svc.ListPage(ctx, "v1", 1, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("want total 3 / 2 items, got %d / %d", total, len(items))
	}
	items, _, _ = svc.ListPage(ctx, "v1", 2, 2)
	if len(items) != 1 {
		t.Fatalf("want 1 item on page 2, got %d", len(items))
	}
	items, total, _ = svc.ListPage(ctx, "nobody", 1, 2)
	if total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("want empty non-nil page, got %v / %d", items, total)
	}
}

func TestSessionMessages_Paged(t *testing.T) {
	svc := NewSessionService(newServiceDB(t))
	ctx := context.Background()
	sess := seedSession(t, svc.DB, "tok")
	seedMessages(t, svc.DB, sess.ID, "1", "2", "3")

	items, total, err := svc.Messages(ctx, "tok", 2, 2)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if total != 3 || len(items) != 1 || items[0].Content != "3" {
		t.Fatalf("unexpected page: %d %+v", total, items)
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc := NewSessionService(newServiceDB(t))
	ctx := context.Background()
	sess := seedSession(t, svc.DB, "tok")

	// No proposal yet: neither step applies.
	if _, err := svc.ValidateScope(ctx, "tok"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("ValidateScope on active: want ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.SendReport(ctx, "tok"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("SendReport on active: want ErrInvalidStatus, got %v", err)
	}

	setStatus(t, svc.DB, sess.ID, domain.StatusProposalGenerated)
	got, err := svc.ValidateScope(ctx, "tok")
	if err != nil || got.Status != domain.StatusScopeValidated {
		t.Fatalf("ValidateScope: %v %+v", err, got)
	}
	// States never skip or repeat.
	if _, err := svc.ValidateScope(ctx, "tok"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("second ValidateScope: want ErrInvalidStatus, got %v", err)
	}
	got, err = svc.SendReport(ctx, "tok")
	if err != nil || got.Status != domain.StatusReportSent {
		t.Fatalf("SendReport: %v %+v", err, got)
	}
	if _, err := svc.SendReport(ctx, "tok"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("second SendReport: want ErrInvalidStatus, got %v", err)
	}
}
