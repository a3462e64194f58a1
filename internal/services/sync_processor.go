package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fluxo/internal/sheets"
	"fluxo/internal/storage"
)

// SyncProcessorConfig holds configuration for the poll-based sync fallback.
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending rows (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of rows to push per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum push attempts before a row stays in the
	// error state (default: 3)
	MaxRetries int
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// SyncProcessor drains the SQLite sync queue into the spreadsheet. It is
// the fallback path when AMQP is down: rows written while the broker was
// unreachable still make it to Sheets on the next poll.
type SyncProcessor struct {
	storage *storage.SQLiteRepository
	writer  sheets.TransactionWriter
	config  SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(repo *storage.SQLiteRepository, writer sheets.TransactionWriter, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		storage: repo,
		writer:  writer,
		config:  config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup to drain any backlog.
	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch pushes one batch of pending rows to the spreadsheet and
// returns how many succeeded.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	pending, err := p.storage.GetPendingSyncTransactions(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch pending sync rows", "error", err)
		return 0
	}
	if len(pending) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(pending))

	synced := 0
	for _, item := range pending {
		select {
		case <-p.stopCh:
			return synced
		case <-ctx.Done():
			return synced
		default:
		}

		if err := p.pushOne(ctx, item.ID); err != nil {
			attempts := item.Attempts + 1
			slog.ErrorContext(ctx, "Failed to push transaction to sheet",
				"id", item.ID, "attempts", attempts, "error", err)
			// The row stays pending until the attempt cap; only then is
			// it parked in the error state.
			if attempts >= p.config.MaxRetries {
				if markErr := p.storage.MarkSyncError(ctx, item.ID); markErr != nil {
					slog.ErrorContext(ctx, "Failed to mark sync error", "id", item.ID, "error", markErr)
				}
			} else if markErr := p.storage.MarkSyncRetry(ctx, item.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync retry", "id", item.ID, "error", markErr)
			}
			continue
		}
		if err := p.storage.MarkSynced(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark synced", "id", item.ID, "error", err)
			continue
		}
		synced++
	}
	return synced
}

func (p *SyncProcessor) pushOne(ctx context.Context, id string) error {
	tx, err := p.storage.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if _, err := p.writer.Append(ctx, tx); err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}
	return nil
}
