// Package memory is an in-process LedgerExporter for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gigledger/internal/core"
	ports "gigledger/internal/sheets"
)

var _ ports.LedgerExporter = (*Exporter)(nil)

type rowKey struct {
	uid  string
	date core.DateKey
}

// Row is one exported day.
type Row struct {
	UserID string
	Entry  core.LedgerEntry
}

type Exporter struct {
	mu     sync.Mutex
	rows   map[rowKey]int
	items  []Row
	writes int
}

func New() *Exporter {
	return &Exporter{rows: make(map[rowKey]int)}
}

// ExportDay stores the day, replacing an earlier export of it.
func (x *Exporter) ExportDay(_ context.Context, uid string, e core.LedgerEntry) (string, error) {
	if !e.Date.Valid() {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidDate, e.Date)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.writes++
	e = core.LedgerPatch{}.Apply(e)
	k := rowKey{uid, e.Date}
	if i, ok := x.rows[k]; ok {
		x.items[i].Entry = e
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	x.items = append(x.items, Row{UserID: uid, Entry: e})
	x.rows[k] = len(x.items) - 1
	return fmt.Sprintf("mem:%d", len(x.items)), nil
}

// Rows returns the exported rows ordered by user then date.
func (x *Exporter) Rows() []Row {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := append([]Row(nil), x.items...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Entry.Date < out[j].Entry.Date
	})
	return out
}

// Writes counts ExportDay calls that succeeded.
func (x *Exporter) Writes() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.writes
}
