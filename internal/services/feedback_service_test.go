package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
)

func TestFeedbackLeave_Validation(t *testing.T) {
	db := newServiceDB(t)
	svc := &FeedbackService{DB: db}
	seedSession(t, db, "tok")
	ctx := context.Background()

	for name, in := range map[string]FeedbackInput{
		"subject":  {Subject: "chat", Adequate: "sim", Rating: 3},
		"adequate": {Subject: "summary", Adequate: "talvez", Rating: 3},
		"rating 0": {Subject: "summary", Adequate: "sim", Rating: 0},
		"rating 6": {Subject: "summary", Adequate: "sim", Rating: 6},
		"notes":    {Subject: "summary", Adequate: "sim", Rating: 3, Notes: strings.Repeat("x", MaxFeedbackNotes+1)},
	} {
		if _, err := svc.Leave(ctx, "tok", "v1", in); !errors.Is(err, ErrInvalidFeedback) {
			t.Fatalf("%s: want ErrInvalidFeedback, got %v", name, err)
		}
	}
}

func TestFeedbackLeave_ProposalRequiresOne(t *testing.T) {
	db := newServiceDB(t)
	svc := &FeedbackService{DB: db}
	sess := seedSession(t, db, "tok")
	ctx := context.Background()

	in := FeedbackInput{Subject: "proposal", Adequate: "parcial", Rating: 4, Notes: "Faltou o portão"}
	if _, err := svc.Leave(ctx, "tok", "v1", in); !errors.Is(err, ErrNoProposal) {
		t.Fatalf("want ErrNoProposal, got %v", err)
	}

	text := "Proposta"
	if err := db.Model(&domain.Session{}).Where("id = ?", sess.ID).Update("proposal", text).Error; err != nil {
		t.Fatalf("set proposal: %v", err)
	}
	fb, err := svc.Leave(ctx, "tok", "v1", in)
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if fb.Adequate != domain.AdequatePartial || fb.AuthorID != "v1" || fb.SessionID != sess.ID {
		t.Fatalf("unexpected feedback: %+v", fb)
	}
}

func TestFeedbackLeave_Additive(t *testing.T) {
	db := newServiceDB(t)
	svc := &FeedbackService{DB: db}
	seedSession(t, db, "tok")
	ctx := context.Background()

	for _, adequate := range []string{"SIM", "Não"} {
		if _, err := svc.Leave(ctx, "tok", "v1", FeedbackInput{Subject: " Summary ", Adequate: adequate, Rating: 5}); err != nil {
			t.Fatalf("Leave(%s): %v", adequate, err)
		}
	}
	list, err := svc.List(ctx, "tok")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("want 2 entries, got %d", len(list))
	}
	if _, err := svc.Leave(ctx, "missing", "v1", FeedbackInput{Subject: "summary", Adequate: "sim", Rating: 5}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}
