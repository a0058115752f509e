package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
	"github.com/tbourn/go-orcamento-backend/internal/http/middleware"
	"github.com/tbourn/go-orcamento-backend/internal/llm"
	"github.com/tbourn/go-orcamento-backend/internal/repo"
	"github.com/tbourn/go-orcamento-backend/internal/services"
	"github.com/tbourn/go-orcamento-backend/internal/worker"
)

// ---------- test DB ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
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
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// ---------- fakes ----------

type fakeLLM struct {
	mu         sync.Mutex
	chunks     []string
	streamErr  error
	midErr     error
	completion string
	calls      int
}

func (f *fakeLLM) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return &fakeStream{chunks: append([]string(nil), f.chunks...), err: f.midErr}, nil
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.completion, nil
}

type fakeStream struct {
	chunks []string
	cur    string
	err    error
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
func (s *fakeStream) Close() error  { return nil }

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://store.invalid/" + key + "?sig=1", nil
}

// ---------- environment ----------

type testEnv struct {
	db      *gorm.DB
	model   *fakeLLM
	store   *memStore
	workers *worker.Group
	router  *gin.Engine
}

// newEnv wires the real services over an in-memory database. storage=false
// leaves object storage unconfigured.
func newEnv(t *testing.T, storage bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		db:      newHandlerDB(t),
		model:   &fakeLLM{},
		store:   &memStore{objects: map[string][]byte{}},
		workers: &worker.Group{},
	}
	media := &services.MediaService{DB: env.db, URLTTL: 15 * time.Minute, MaxBytes: 1 << 20}
	if storage {
		media.Store = env.store
	}
	h := New(Services{
		Sessions:  services.NewSessionService(env.db),
		Chat:      &services.ChatService{DB: env.db, LLM: env.model, Workers: env.workers, MaxPromptRunes: 200, MaxSessionMessages: 6},
		Proposals: &services.ProposalService{DB: env.db, LLM: env.model},
		Exports:   &services.ExportService{DB: env.db, Media: media, Company: "Acme Segurança"},
		Media:     media,
		Feedback:  &services.FeedbackService{DB: env.db},
	})

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	h.Mount(r.Group("/api/v1"), r.Group("/functions/v1"))
	env.router = r
	return env
}

// wait drains background relays so persisted replies are visible.
func (e *testEnv) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.workers.Wait(ctx); err != nil {
		t.Fatalf("background relays did not finish: %v", err)
	}
}

func (e *testEnv) session(t *testing.T) *domain.Session {
	t.Helper()
	s, err := services.NewSessionService(e.db).Create(context.Background(), "vendor-1", "condomínio aurora", "Rua A, 10")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func (e *testEnv) seedMessages(t *testing.T, sessionID string, turns ...string) {
	t.Helper()
	for i, c := range turns {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		if _, err := repo.AppendMessage(context.Background(), e.db, sessionID, role, c); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}
}

func (e *testEnv) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, w).Code
}
