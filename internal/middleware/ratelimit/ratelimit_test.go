package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowBurstThenRefill(t *testing.T) {
	l := NewLimiter(Config{RPS: 1, Burst: 2})
	defer l.Stop()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("1.2.3.4") || !l.Allow("1.2.3.4") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("5.6.7.8") {
		t.Fatal("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("1.2.3.4") {
		t.Fatal("a token should refill after one second")
	}
}

func TestCleanupIdle(t *testing.T) {
	l := NewLimiter(Config{RPS: 1, Burst: 1, IdleTTL: time.Minute})
	defer l.Stop()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	l.Allow("a")
	now = now.Add(30 * time.Second)
	l.Allow("b")
	now = now.Add(45 * time.Second)

	if n := l.cleanupIdle(); n != 1 {
		t.Fatalf("removed %d clients, want 1", n)
	}
	if l.ActiveClients() != 1 {
		t.Fatalf("ActiveClients = %d, want 1", l.ActiveClients())
	}
}

func TestMiddleware(t *testing.T) {
	l := NewLimiter(Config{RPS: 0.001, Burst: 1})
	defer l.Stop()

	limited := 0
	h := l.Middleware(Options{
		ExtractIP: func(*http.Request) string { return "ip" },
		Skip:      WritesOnly,
		OnLimit: func(w http.ResponseWriter, r *http.Request) {
			limited++
			w.WriteHeader(http.StatusTooManyRequests)
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := []int{}
	for _, m := range []string{http.MethodPost, http.MethodPost, http.MethodGet} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(m, "/ledger", nil))
		codes = append(codes, rec.Code)
	}
	want := []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusNoContent}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d: status %d, want %d", i, codes[i], want[i])
		}
	}
	if limited != 1 {
		t.Errorf("OnLimit called %d times, want 1", limited)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	l.Stop()
	l.Stop()
}
