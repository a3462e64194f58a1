// Package adapters composes storage and remote sources behind the sheets
// ports.
package adapters

import (
	"context"
	"log/slog"

	"fluxo/internal/core"
	"fluxo/internal/sheets"
	"fluxo/internal/storage"
)

// SQLiteAdapter serves the sheets ports from the local SQLite store. The
// reference tables are lazily hydrated from a remote source (the
// spreadsheet) the first time they are needed, then served locally.
type SQLiteAdapter struct {
	storage   *storage.SQLiteRepository
	refSource sheets.ReferenceReader
}

func NewSQLiteAdapter(repo *storage.SQLiteRepository, refSource sheets.ReferenceReader) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage:   repo,
		refSource: refSource,
	}
}

// Append implements sheets.TransactionWriter
func (a *SQLiteAdapter) Append(ctx context.Context, tx core.Transaction) (string, error) {
	return a.storage.Append(ctx, tx)
}

// ListTransactions implements sheets.TransactionLister
func (a *SQLiteAdapter) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return a.storage.ListTransactions(ctx)
}

// DeleteTransaction implements sheets.TransactionDeleter
func (a *SQLiteAdapter) DeleteTransaction(ctx context.Context, id string) error {
	return a.storage.DeleteTransaction(ctx, id)
}

// ListReference implements sheets.ReferenceReader. The local copy wins;
// when it is empty and a remote source is configured, the tables are
// pulled once and cached in SQLite.
func (a *SQLiteAdapter) ListReference(ctx context.Context) (core.Reference, error) {
	ref, err := a.storage.ListReference(ctx)
	if err != nil {
		return core.Reference{}, err
	}
	if len(ref.Categories) > 0 || len(ref.Accounts) > 0 || len(ref.PaymentMethods) > 0 {
		return ref, nil
	}
	if a.refSource == nil {
		return ref, nil
	}

	remote, err := a.refSource.ListReference(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to hydrate reference tables from remote", "error", err)
		return ref, nil
	}
	if err := a.storage.ReplaceReference(ctx, remote); err != nil {
		slog.WarnContext(ctx, "Failed to cache reference tables", "error", err)
	} else {
		slog.InfoContext(ctx, "Reference tables hydrated from remote",
			"categories", len(remote.Categories),
			"accounts", len(remote.Accounts),
			"payment_methods", len(remote.PaymentMethods))
	}
	return remote, nil
}
