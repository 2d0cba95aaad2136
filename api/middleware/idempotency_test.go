package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prestalink/prestalink-backend/pkg/logger"
)

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "plk:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func newIdempotencyRouter(store *memoryStore, hits *int) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test"})
	r := chi.NewRouter()
	r.Use(Idempotency(store, logg))
	r.Post("/api/v1/bookings", func(w http.ResponseWriter, _ *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"b-1"}}`))
	})
	r.Get("/api/v1/bookings", func(w http.ResponseWriter, _ *http.Request) {
		*hits++
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestIdempotencyRequiresHeaderOnGuardedRoute(t *testing.T) {
	hits := 0
	router := newIdempotencyRouter(newMemoryStore(), &hits)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without header, got %d", w.Code)
	}
	if hits != 0 {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	hits := 0
	router := newIdempotencyRouter(newMemoryStore(), &hits)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"slot_id":"s-1"}`))
		req.Header.Set("Idempotency-Key", "key-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, w.Code)
		}
		if !strings.Contains(w.Body.String(), "b-1") {
			t.Fatalf("request %d: unexpected body %s", i, w.Body.String())
		}
	}
	if hits != 1 {
		t.Fatalf("handler should run once, ran %d times", hits)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	hits := 0
	router := newIdempotencyRouter(newMemoryStore(), &hits)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"slot_id":"s-1"}`))
	first.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"slot_id":"s-2"}`))
	second.Header.Set("Idempotency-Key", "key-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, second)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key, got %d", w.Code)
	}
	if hits != 1 {
		t.Fatalf("handler should run once, ran %d times", hits)
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	hits := 0
	router := newIdempotencyRouter(newMemoryStore(), &hits)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if hits != 1 {
		t.Fatalf("handler should run, ran %d times", hits)
	}
}
