package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"gigledger/internal/core"
)

// fakeSheet serves the two Values calls the exporter makes.
type fakeSheet struct {
	mu   sync.Mutex
	rows [][]any
}

var rowRange = regexp.MustCompile(`!A(\d+):J\d+$`)

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := strings.Index(r.URL.Path, "/values/")
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	rng := r.URL.Path[i+len("/values/"):]

	switch r.Method {
	case http.MethodGet:
		keys := make([][]any, len(f.rows))
		for n, row := range f.rows {
			keys[n] = row[:2]
		}
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": keys})
	case http.MethodPut:
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			http.Error(w, "missing valueInputOption", http.StatusBadRequest)
			return
		}
		m := rowRange.FindStringSubmatch(rng)
		if m == nil {
			http.Error(w, "bad range "+rng, http.StatusBadRequest)
			return
		}
		n, _ := strconv.Atoi(m[1])
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Values) != 1 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		for len(f.rows) < n {
			f.rows = append(f.rows, []any{"", ""})
		}
		f.rows[n-1] = body.Values[0]
		json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})
	default:
		http.Error(w, "method", http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.now = func() time.Time { return time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) }
	return c, fake
}

func TestExportDayAppendsThenUpdatesInPlace(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	e := core.LedgerEntry{
		Date:     "2024-05-15",
		Income:   core.Rupees(900),
		Hours:    decimal.RequireFromString("6.5"),
		Platform: "Swiggy",
		Expenses: map[string]core.Money{"food": core.Rupees(80), "fuel": core.Rupees(120)},
	}
	ref, err := c.ExportDay(ctx, "u1", e)
	if err != nil {
		t.Fatalf("ExportDay: %v", err)
	}
	if ref != "Ledger!A2:J2" {
		t.Fatalf("ref = %s", ref)
	}
	if fake.rows[0][0] != "User" {
		t.Fatalf("header not written: %v", fake.rows[0])
	}

	if _, err := c.ExportDay(ctx, "u2", core.LedgerEntry{Date: "2024-05-15"}); err != nil {
		t.Fatal(err)
	}

	e.Expenses["fuel"] = core.Rupees(150)
	ref, err = c.ExportDay(ctx, "u1", e)
	if err != nil {
		t.Fatal(err)
	}
	if ref != "Ledger!A2:J2" {
		t.Fatalf("update went to %s", ref)
	}
	if len(fake.rows) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(fake.rows))
	}
	if got := fake.rows[1][7]; got != "food=80; fuel=150" {
		t.Fatalf("breakdown = %v", got)
	}
	if got := fake.rows[1][5]; got != float64(230) {
		t.Fatalf("expenses total = %v", got)
	}
}

func TestExportDayRejectsInvalidDate(t *testing.T) {
	c := &Client{}
	if _, err := c.ExportDay(context.Background(), "u1", core.LedgerEntry{Date: "2024-13-01"}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := c.ExportDay(context.Background(), "u1", core.LedgerEntry{Date: "2024-05-01"}); err == nil {
		t.Fatal("expected error for nil service")
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	ctx := context.Background()

	if _, err := loadCredentials(ctx, ""); err == nil {
		t.Fatal("expected missing credentials error")
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)
	b, err := loadCredentials(ctx, "")
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Fatalf("inline = %s, %v", b, err)
	}

	if _, err := loadCredentials(ctx, "/does/not/exist.json"); err == nil {
		t.Fatal("explicit missing file should fail")
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{
		{"User", "Date"},
		{"u1", "2024-05-14"},
		{"u1", "2024-05-15"},
		{"u2"},
	}
	if got := findRow(values, "u1", "2024-05-15"); got != 3 {
		t.Errorf("findRow = %d, want 3", got)
	}
	if got := findRow(values, "u2", "2024-05-15"); got != 0 {
		t.Errorf("findRow = %d, want 0", got)
	}
}
