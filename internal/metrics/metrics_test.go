package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"gigledger/internal/cache"
)

func TestObservers(t *testing.T) {
	r := New()

	r.ObserveRequest("GET", "/", 200, 10*time.Millisecond)
	r.ObserveRequest("GET", "/", 200, 20*time.Millisecond)
	r.ObserveRequest("POST", "/ledger", 422, time.Millisecond)
	r.IncLedgerSave()
	r.ObserveInsights("cashflow", "ok", time.Second)
	r.ObserveInsights("cashflow", "open", 0)
	r.ObservePublish("ok")
	r.ObserveExport("error")
	r.IncRateLimited()
	r.IncSuspicious()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"requests GET /", testutil.ToFloat64(r.requests.WithLabelValues("GET", "/", "200")), 2},
		{"requests POST /ledger", testutil.ToFloat64(r.requests.WithLabelValues("POST", "/ledger", "422")), 1},
		{"ledger saves", testutil.ToFloat64(r.ledgerSaves), 1},
		{"insights ok", testutil.ToFloat64(r.insightCalls.WithLabelValues("cashflow", "ok")), 1},
		{"insights open", testutil.ToFloat64(r.insightCalls.WithLabelValues("cashflow", "open")), 1},
		{"publishes", testutil.ToFloat64(r.publishes.WithLabelValues("ok")), 1},
		{"exports", testutil.ToFloat64(r.exports.WithLabelValues("error")), 1},
		{"rate limited", testutil.ToFloat64(r.rateLimited), 1},
		{"suspicious", testutil.ToFloat64(r.suspicious), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	// An open breaker never reached the backend, so it has no latency.
	if n := testutil.CollectAndCount(r.insightDuration); n != 1 {
		t.Errorf("insight duration series = %d, want 1", n)
	}
}

func TestRegisterCacheAndHandler(t *testing.T) {
	r := New()
	c := cache.NewLRUCache[int](10, time.Minute)
	if err := r.RegisterCache("insights", c); err != nil {
		t.Fatalf("RegisterCache: %v", err)
	}
	if err := r.RegisterCache("insights", c); err == nil {
		t.Error("registering the same cache twice should fail")
	}

	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("b")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`gigledger_cache_hits_total{cache="insights"} 2`,
		`gigledger_cache_misses_total{cache="insights"} 1`,
		`gigledger_cache_entries{cache="insights"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
