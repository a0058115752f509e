package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
	"github.com/tbourn/go-orcamento-backend/internal/llm"
	"github.com/tbourn/go-orcamento-backend/internal/repo"
)

// newServiceDB opens a private in-memory database with the full schema. A
// single connection keeps background writers from tripping shared-cache
// table locks.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedSession(t *testing.T, db *gorm.DB, token string) *domain.Session {
	t.Helper()
	s, err := repo.CreateSession(context.Background(), db, "v1", token, "Condomínio Aurora", "Rua A, 10")
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return s
}

func seedMessages(t *testing.T, db *gorm.DB, sessionID string, turns ...string) {
	t.Helper()
	for i, c := range turns {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		if _, err := repo.AppendMessage(context.Background(), db, sessionID, role, c); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}
}

func setStatus(t *testing.T, db *gorm.DB, id string, st domain.SessionStatus) {
	t.Helper()
	if err := db.Model(&domain.Session{}).Where("id = ?", id).Update("status", st).Error; err != nil {
		t.Fatalf("set status: %v", err)
	}
}

// ----- Fake LLM -----

type fakeLLM struct {
	mu sync.Mutex

	chunks    []string
	streamErr error // returned by Stream
	midErr    error // reported by the stream after the chunks

	completion  string
	completions []string // when set, consumed in order before completion
	completeErr error

	requests []llm.Request
}

func (f *fakeLLM) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return &fakeStream{chunks: append([]string(nil), f.chunks...), err: f.midErr}, nil
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.completions) > 0 {
		out := f.completions[0]
		f.completions = f.completions[1:]
		return out, f.completeErr
	}
	return f.completion, f.completeErr
}

func (f *fakeLLM) lastRequest(t *testing.T) llm.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatalf("no model request recorded")
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeStream struct {
	chunks []string
	cur    string
	err    error
	closed bool
}

func (s *fakeStream) Next() bool {
	if len(s.chunks) == 0 {
		return false
	}
	s.cur, s.chunks = s.chunks[0], s.chunks[1:]
	return true
}

func (s *fakeStream) Delta() string { return s.cur }
func (s *fakeStream) Err() error    { return s.err }
func (s *fakeStream) Close() error  { s.closed = true; return nil }

// ----- Fake reference provider -----

type staticReference string

func (r staticReference) Context(context.Context, string) string { return string(r) }

// ----- In-memory object store -----

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  string // Put fails for keys containing this
	deleted []string
	base    string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}, base: "http://store.invalid"}
}

func (m *memStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if m.failOn != "" && strings.Contains(key, m.failOn) {
		return errors.New("store unavailable")
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	m.types[key] = contentType
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("%s/%s?expires=%d", m.base, key, int(ttl.Seconds())), nil
}

// ServeHTTP serves stored objects so signed URLs can be fetched.
func (m *memStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	b, ok := m.objects[strings.TrimPrefix(r.URL.Path, "/")]
	ct := m.types[strings.TrimPrefix(r.URL.Path, "/")]
	m.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", ct)
	_, _ = w.Write(b)
}

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}
