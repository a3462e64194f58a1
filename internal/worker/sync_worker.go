// Package worker mirrors local transaction writes to the spreadsheet. It
// consumes AMQP sync messages and keeps a periodic backlog sweep as a
// safety net for lost messages.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fluxo/internal/amqp"
	"fluxo/internal/sheets"
	"fluxo/internal/storage"
)

// SyncWorker pushes transactions from SQLite to the spreadsheet.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.TransactionWriter
	deleter   sheets.TransactionDeleter
	refSource sheets.ReferenceReader
	batchSize int
}

func NewSyncWorker(repo *storage.SQLiteRepository, writer sheets.TransactionWriter, deleter sheets.TransactionDeleter, refSource sheets.ReferenceReader, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   repo,
		writer:    writer,
		deleter:   deleter,
		refSource: refSource,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"action", msg.Action)

	switch msg.Action {
	case amqp.ActionCreate:
		return w.pushTransaction(ctx, msg.ID)
	case amqp.ActionDelete:
		return w.deleteTransaction(ctx, msg.ID)
	default:
		// Unknown actions are dropped, not requeued.
		slog.WarnContext(ctx, "Unknown sync action, dropping message",
			"id", msg.ID, "action", msg.Action)
		return nil
	}
}

func (w *SyncWorker) pushTransaction(ctx context.Context, id string) error {
	tx, err := w.storage.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted locally before the worker got to it.
			slog.WarnContext(ctx, "Transaction vanished before sync, skipping", "id", id)
			return nil
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if _, err := w.writer.Append(ctx, tx); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append transaction to sheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

func (w *SyncWorker) deleteTransaction(ctx context.Context, id string) error {
	if w.deleter == nil {
		slog.WarnContext(ctx, "No deleter configured, skipping sheet deletion", "id", id)
		return nil
	}
	if err := w.deleter.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction from sheet: %w", err)
	}
	slog.InfoContext(ctx, "Transaction deleted from sheet", "id", id)
	return nil
}

// ProcessPendingTransactions pushes rows that never got a queue message.
// This is the backup path for lost AMQP deliveries.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		if err := w.pushTransaction(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending transaction",
				"id", p.ID, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck drains the backlog left over from worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	successCount := 0
	for _, p := range pending {
		if err := w.pushTransaction(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction during startup",
				"id", p.ID, "error", err)
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", len(pending)-successCount)

	return nil
}

// RefreshReference pulls the reference tables from the spreadsheet and
// caches them locally so the API keeps working while Sheets is down.
func (w *SyncWorker) RefreshReference(ctx context.Context) error {
	if w.refSource == nil {
		return nil
	}
	ref, err := w.refSource.ListReference(ctx)
	if err != nil {
		return fmt.Errorf("load reference tables: %w", err)
	}
	if err := w.storage.ReplaceReference(ctx, ref); err != nil {
		return fmt.Errorf("cache reference tables: %w", err)
	}
	slog.InfoContext(ctx, "Reference tables refreshed",
		"categories", len(ref.Categories),
		"accounts", len(ref.Accounts),
		"payment_methods", len(ref.PaymentMethods))
	return nil
}

// Run starts the consumer and the periodic sweeps, returning when the
// context ends or the consumer fails.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client, pollInterval time.Duration) error {
	if err := w.StartupSyncCheck(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup sync check failed", "error", err)
	}
	if err := w.RefreshReference(ctx); err != nil {
		slog.ErrorContext(ctx, "Reference refresh failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			err := client.ConsumeTransactionSync(ctx, func(msg *amqp.TransactionSyncMessage) error {
				return w.HandleSyncMessage(ctx, msg)
			})
			if ctx.Err() != nil {
				return err
			}
			if !amqp.IsConnectionError(err) {
				return err
			}
			// Dropped broker connection: the pending sweep keeps rows
			// safe while we dial again, then consumption resumes.
			slog.WarnContext(ctx, "Broker connection lost, reconnecting", "error", err)
			if err := client.Reconnect(ctx); err != nil {
				return err
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		refTicker := time.NewTicker(12 * time.Hour)
		defer refTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPendingTransactions(ctx); err != nil {
					slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
				}
			case <-refTicker.C:
				if err := w.RefreshReference(ctx); err != nil {
					slog.ErrorContext(ctx, "Reference refresh failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}
