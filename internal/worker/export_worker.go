// Package worker exports saved ledger days to the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gigledger/internal/amqp"
	"gigledger/internal/core"
	"gigledger/internal/log"
	"gigledger/internal/sheets"
	"gigledger/internal/store"
)

// Recorder observes export outcomes.
type Recorder interface {
	ObserveExport(outcome string)
}

// ExportWorker copies ledger days from the store to the exporter.
type ExportWorker struct {
	store     store.LedgerStore
	tracker   store.SyncTracker
	exporter  sheets.LedgerExporter
	batchSize int
	logger    *slog.Logger
	recorder  Recorder
}

// NewExportWorker builds the worker. tracker may be nil for backends that do
// not record sync state; ProcessPending is then a no-op.
func NewExportWorker(s store.LedgerStore, tracker store.SyncTracker, exporter sheets.LedgerExporter, batchSize int, logger *slog.Logger) *ExportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize < 1 {
		batchSize = 50
	}
	return &ExportWorker{
		store:     s,
		tracker:   tracker,
		exporter:  exporter,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *ExportWorker) SetRecorder(r Recorder) { w.recorder = r }

// HandleLedgerSync exports the day named by one AMQP message. A day that no
// longer exists is acknowledged without exporting.
func (w *ExportWorker) HandleLedgerSync(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger sync message",
		log.FieldComponent, log.ComponentWorker, log.FieldUserID, msg.UserID, log.FieldDate, msg.Date)

	e, err := w.store.GetEntry(ctx, msg.UserID, msg.Date)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.WarnContext(ctx, "Ledger day not found, skipping export",
			log.FieldComponent, log.ComponentWorker, log.FieldUserID, msg.UserID, log.FieldDate, msg.Date)
		w.observe("skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get ledger day: %w", err)
	}
	return w.export(ctx, msg.UserID, e)
}

func (w *ExportWorker) export(ctx context.Context, uid string, e core.LedgerEntry) error {
	ref, err := w.exporter.ExportDay(ctx, uid, e)
	if err != nil {
		w.observe("error")
		return fmt.Errorf("export ledger day: %w", err)
	}
	w.observe("ok")
	w.logger.InfoContext(ctx, "Exported ledger day",
		log.FieldComponent, log.ComponentWorker, log.FieldUserID, uid, log.FieldDate, e.Date, "row", ref)
	return nil
}

// ProcessPending exports days the store still marks as pending. It backs up
// the message path when messages were lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) (synced, failed int, err error) {
	if w.tracker == nil {
		return 0, 0, nil
	}
	refs, err := w.tracker.PendingSync(ctx, w.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending days: %w", err)
	}
	for _, ref := range refs {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.syncRef(ctx, ref); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export pending day",
				log.FieldComponent, log.ComponentWorker, log.FieldUserID, ref.UserID, log.FieldDate, ref.Date, log.FieldError, err)
			if markErr := w.tracker.MarkSyncError(ctx, ref); markErr != nil {
				w.logger.ErrorContext(ctx, "Failed to mark sync error",
					log.FieldComponent, log.ComponentWorker, log.FieldUserID, ref.UserID, log.FieldDate, ref.Date, log.FieldError, markErr)
			}
			failed++
			continue
		}
		synced++
	}
	if len(refs) > 0 {
		w.logger.InfoContext(ctx, "Processed pending ledger days",
			log.FieldComponent, log.ComponentWorker, "total", len(refs), "synced", synced, "errors", failed)
	}
	return synced, failed, nil
}

func (w *ExportWorker) syncRef(ctx context.Context, ref store.SyncRef) error {
	e, err := w.store.GetEntry(ctx, ref.UserID, ref.Date)
	if err != nil {
		return fmt.Errorf("get ledger day: %w", err)
	}
	if err := w.export(ctx, ref.UserID, e); err != nil {
		return err
	}
	// The row is exported; a failed mark only means it is exported again.
	if err := w.tracker.MarkSynced(ctx, ref); err != nil {
		w.logger.WarnContext(ctx, "Failed to mark day as synced",
			log.FieldComponent, log.ComponentWorker, log.FieldUserID, ref.UserID, log.FieldDate, ref.Date, log.FieldError, err)
	}
	return nil
}

// Backfill exports every logged day of uid between from and to inclusive.
func (w *ExportWorker) Backfill(ctx context.Context, uid string, from, to core.DateKey) (int, error) {
	if !from.Valid() || !to.Valid() {
		return 0, core.ErrInvalidDate
	}
	if to < from {
		return 0, fmt.Errorf("backfill range ends before it starts: %s > %s", from, to)
	}
	entries, err := w.store.ListEntries(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("list ledger days: %w", err)
	}

	start := time.Now()
	n := 0
	// Oldest first so appended rows read chronologically.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !e.Date.Valid() || e.Date < from || e.Date > to {
			continue
		}
		if err := w.export(ctx, uid, e); err != nil {
			return n, err
		}
		n++
	}
	w.logger.InfoContext(ctx, "Backfill completed",
		log.FieldComponent, log.ComponentWorker, log.FieldUserID, uid, "from", from, "to", to, "exported", n, "took", time.Since(start))
	return n, nil
}

func (w *ExportWorker) observe(outcome string) {
	if w.recorder != nil {
		w.recorder.ObserveExport(outcome)
	}
}
