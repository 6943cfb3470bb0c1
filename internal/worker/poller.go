package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gigledger/internal/log"
)

// Poller runs ExportWorker.ProcessPending on an interval.
type Poller struct {
	worker   *ExportWorker
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewPoller(w *ExportWorker, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{worker: w, interval: interval, logger: logger}
}

// Start begins polling. It returns an error if already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("poller is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.run(ctx, p.stopCh, p.doneCh)

	p.logger.InfoContext(ctx, "Sync poller started", log.FieldComponent, log.ComponentWorker, "interval", p.interval)
	return nil
}

// Stop ends polling and waits for the current pass, or for ctx.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync poller stop timed out", log.FieldComponent, log.ComponentWorker)
		return ctx.Err()
	}
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pass(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pass(ctx)
		}
	}
}

func (p *Poller) pass(ctx context.Context) {
	if _, _, err := p.worker.ProcessPending(ctx); err != nil && ctx.Err() == nil {
		p.logger.ErrorContext(ctx, "Sync poll failed", log.FieldComponent, log.ComponentWorker, log.FieldError, err)
	}
}
