// Package google exports ledger days to a Google Sheets spreadsheet using
// service-account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"gigledger/internal/core"
	"gigledger/internal/log"
	ports "gigledger/internal/sheets"
)

var _ ports.LedgerExporter = (*Client)(nil)

// Header is written to an empty sheet before the first row.
var Header = []any{"User", "Date", "Income", "Hours", "Platform", "Expenses", "Profit", "Breakdown", "Note", "Updated"}

type Config struct {
	SpreadsheetID string
	Sheet         string
	// CredentialsFile is a service-account key file. When empty the
	// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE and
	// GOOGLE_APPLICATION_CREDENTIALS variables are tried in that order.
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	now           func() time.Time
}

// New creates a Sheets client. Extra options replace the credential lookup,
// which lets tests point the client at a fake endpoint.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(cfg.Sheet)
	if sheet == "" {
		sheet = "Ledger"
	}

	if len(opts) == 0 {
		creds, err := loadCredentials(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet, now: time.Now}, nil
}

func loadCredentials(ctx context.Context, file string) ([]byte, error) {
	file = strings.TrimSpace(file)
	if file == "" {
		if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
			slog.InfoContext(ctx, "Using inline service account credentials", log.FieldComponent, log.ComponentSheets)
			return []byte(inline), nil
		}
		file = strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	}
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_FILE, GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	slog.InfoContext(ctx, "Read service account credentials", log.FieldComponent, log.ComponentSheets, "path", file)
	return b, nil
}

// ExportDay writes the day to its row, found by user and date in columns A
// and B, or appends a new row.
func (c *Client) ExportDay(ctx context.Context, uid string, e core.LedgerEntry) (string, error) {
	if !e.Date.Valid() {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidDate, e.Date)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	keys := fmt.Sprintf("%s!A:B", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, keys).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", keys, err)
	}

	row := findRow(resp.Values, uid, e.Date)
	if row == 0 {
		row = len(resp.Values) + 1
		if row == 1 {
			if err := c.write(ctx, 1, Header); err != nil {
				return "", fmt.Errorf("write header: %w", err)
			}
			row = 2
		}
	}
	if err := c.write(ctx, row, rowValues(uid, e, c.now())); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s!A%d:J%d", c.sheet, row, row), nil
}

func (c *Client) write(ctx context.Context, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:J%d", c.sheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// findRow returns the 1-based row holding (uid, date), or 0.
func findRow(values [][]any, uid string, date core.DateKey) int {
	for i, row := range values {
		cols := toStrings(row)
		if len(cols) >= 2 && cols[0] == uid && cols[1] == string(date) {
			return i + 1
		}
	}
	return 0
}

func rowValues(uid string, e core.LedgerEntry, now time.Time) []any {
	return []any{
		uid,
		string(e.Date),
		e.Income.Float(),
		e.Hours.String(),
		e.Platform,
		e.TotalExpenses().Float(),
		e.Profit().Float(),
		breakdown(e),
		e.Note,
		now.UTC().Format(time.RFC3339),
	}
}

// breakdown renders the expenses as "fuel=150; food=80", categories sorted.
func breakdown(e core.LedgerEntry) string {
	cats := e.Categories()
	parts := make([]string, 0, len(cats))
	for _, k := range cats {
		parts = append(parts, k+"="+e.Expenses[k].Input())
	}
	return strings.Join(parts, "; ")
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
