package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Session{}).TableName():  "sessions",
		(Message{}).TableName():  "messages",
		(Media{}).TableName():    "media",
		(Feedback{}).TableName(): "feedback",
		(Deal{}).TableName():     "deals",
		(Customer{}).TableName(): "customers",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestSessionStatus_Chattable(t *testing.T) {
	for s, want := range map[SessionStatus]bool{
		StatusActive:            true,
		StatusProposalGenerated: true,
		StatusScopeValidated:    false,
		StatusReportSent:        false,
		SessionStatus("bogus"):  false,
	} {
		if got := s.Chattable(); got != want {
			t.Fatalf("%q.Chattable() = %v; want %v", s, got, want)
		}
	}
}

func TestMigrations_Constraints_AndCascades(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&Session{}, &Message{}, &Media{}, &Feedback{}, &Deal{}, &Customer{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, idx := range []struct {
		model any
		name  string
	}{
		{&Session{}, "ux_sessions_token"},
		{&Session{}, "idx_vendor_sessions"},
		{&Message{}, "ux_session_seq"},
		{&Media{}, "idx_session_media"},
	} {
		if !m.HasIndex(idx.model, idx.name) {
			t.Fatalf("expected index %s on %T", idx.name, idx.model)
		}
	}

	now := time.Now().UTC()
	s := &Session{ID: "s1", Token: "tok", VendorID: "v1", ClientName: "Cond. Aurora", Status: StatusActive, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("insert session: %v", err)
	}

	// Duplicate token is rejected.
	dup := &Session{ID: "s2", Token: "tok", VendorID: "v1", ClientName: "x", Status: StatusActive}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected unique violation on token")
	}

	// Unknown status is rejected by the check constraint.
	bad := &Session{ID: "s3", Token: "tok3", VendorID: "v1", ClientName: "x", Status: "archived"}
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected check violation on status")
	}

	m1 := &Message{ID: "m1", SessionID: "s1", Seq: 1, Role: RoleUser, Content: "oi", CreatedAt: now}
	if err := db.Create(m1).Error; err != nil {
		t.Fatalf("insert m1: %v", err)
	}
	// Same seq twice in one session is rejected.
	if err := db.Create(&Message{ID: "m2", SessionID: "s1", Seq: 1, Role: RoleAssistant, Content: "olá"}).Error; err == nil {
		t.Fatalf("expected unique violation on (session_id, seq)")
	}
	// Roles other than user/assistant are rejected.
	if err := db.Create(&Message{ID: "m3", SessionID: "s1", Seq: 2, Role: "system", Content: "x"}).Error; err == nil {
		t.Fatalf("expected check violation on role")
	}

	// Rating outside 1..5 is rejected.
	if err := db.Create(&Feedback{ID: "f0", SessionID: "s1", Subject: SubjectProposal, Adequate: AdequateYes, Rating: 6, AuthorID: "v1"}).Error; err == nil {
		t.Fatalf("expected check violation on rating")
	}
	if err := db.Create(&Feedback{ID: "f1", SessionID: "s1", Subject: SubjectProposal, Adequate: AdequatePartial, Rating: 4, AuthorID: "v1"}).Error; err != nil {
		t.Fatalf("insert feedback: %v", err)
	}
	if err := db.Create(&Media{ID: "md1", SessionID: "s1", FileName: "a.jpg", StorageKey: "sessions/s1/a.jpg", Kind: MediaPhoto}).Error; err != nil {
		t.Fatalf("insert media: %v", err)
	}

	// Hard-deleting the session cascades to its children.
	if err := db.Unscoped().Delete(&Session{}, "id = ?", "s1").Error; err != nil {
		t.Fatalf("delete session: %v", err)
	}
	for _, model := range []any{&Message{}, &Feedback{}, &Media{}} {
		var cnt int64
		if err := db.Model(model).Where("session_id = ?", "s1").Count(&cnt).Error; err != nil {
			t.Fatalf("count %T: %v", model, err)
		}
		if cnt != 0 {
			t.Fatalf("expected %T rows to cascade-delete, got %d", model, cnt)
		}
	}
}
