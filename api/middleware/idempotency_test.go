package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type memoryIdempotencyStore struct {
	values map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: map[string]string{}}
}

func (m *memoryIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := m.values[key]; exists {
		return false, nil
	}
	switch v := value.(type) {
	case string:
		m.values[key] = v
	case []byte:
		m.values[key] = string(v)
	}
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "fp:idempotency:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func newIdempotencyRouter(store *memoryIdempotencyStore, calls *int) http.Handler {
	r := chi.NewRouter()
	r.With(Idempotency(store, nil)).Post("/api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"order":"created"}}`))
	})
	return r
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	router := newIdempotencyRouter(store, &calls)

	body := `{"customer_name":"Ada"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "key-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201 got %d", i, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "created") {
			t.Fatalf("request %d: unexpected body %q", i, resp.Body.String())
		}
	}

	if calls != 1 {
		t.Fatalf("handler should run once, ran %d times", calls)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	router := newIdempotencyRouter(store, &calls)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"customer_name":"Ada"}`))
	first.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"customer_name":"Grace"}`))
	second.Header.Set("Idempotency-Key", "key-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, second)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for mismatched replay got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "IDEMPOTENCY_CONFLICT") {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler should run once, ran %d times", calls)
	}
}

func TestIdempotencyRequiresKeyHeader(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	router := newIdempotencyRouter(store, &calls)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key got %d", resp.Code)
	}
	if calls != 0 {
		t.Fatalf("handler must not run without key")
	}
}

func TestIdempotencySkipsUnmatchedRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	r := chi.NewRouter()
	calls := 0
	r.With(Idempotency(store, nil)).Get("/api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK || calls != 1 {
		t.Fatalf("GET must bypass idempotency, got %d calls %d", resp.Code, calls)
	}
	if len(store.values) != 0 {
		t.Fatalf("nothing should be stored for unmatched routes")
	}
}
