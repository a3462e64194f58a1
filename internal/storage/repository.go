// Package storage persists transactions and reference tables in SQLite.
// It doubles as the local write-ahead store for the spreadsheet sync
// worker: rows carry a sync status that the worker drains to Sheets.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fluxo/internal/core"
	"fluxo/internal/sheets"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row lookup matches nothing. It aliases
// the port-level sentinel so errors.Is works across backends.
var ErrNotFound = sheets.ErrNotFound

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements sheets.TransactionWriter. The row starts in the
// pending sync state so the worker will push it to the spreadsheet.
func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, kind, amount_cents, date, description, category_id,
			account_id, target_account_id, payment_method_id,
			commission_pct, repeat, installments
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, string(tx.Kind), tx.Amount.Cents, tx.Date.String(), tx.Description,
		tx.CategoryID, tx.AccountID, tx.TargetAccountID, tx.PaymentMethodID,
		tx.CommissionPct, string(tx.Repeat.Normalized()), tx.Installments)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"kind", tx.Kind,
		"amount_cents", tx.Amount.Cents,
		"date", tx.Date.String())

	return tx.ID, nil
}

// ListTransactions implements sheets.TransactionLister.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, amount_cents, date, description, category_id,
		       account_id, target_account_id, payment_method_id,
		       commission_pct, repeat, installments
		FROM transactions
		ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// GetTransaction returns a single transaction by ID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, amount_cents, date, description, category_id,
		       account_id, target_account_id, payment_method_id,
		       commission_pct, repeat, installments
		FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return tx, err
}

// DeleteTransaction implements sheets.TransactionDeleter.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListReference implements sheets.ReferenceReader.
func (r *SQLiteRepository) ListReference(ctx context.Context) (core.Reference, error) {
	var ref core.Reference

	rows, err := r.db.QueryContext(ctx, `SELECT id, name, cat_group FROM categories ORDER BY position, id`)
	if err != nil {
		return ref, fmt.Errorf("query categories: %w", err)
	}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Group); err != nil {
			rows.Close()
			return ref, fmt.Errorf("scan category: %w", err)
		}
		ref.Categories = append(ref.Categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ref, fmt.Errorf("iterate categories: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `SELECT id, name, seed_balance_cents FROM accounts ORDER BY position, id`)
	if err != nil {
		return ref, fmt.Errorf("query accounts: %w", err)
	}
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.SeedBalance.Cents); err != nil {
			rows.Close()
			return ref, fmt.Errorf("scan account: %w", err)
		}
		ref.Accounts = append(ref.Accounts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ref, fmt.Errorf("iterate accounts: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `SELECT id, name, fee_pct, card_settlement FROM payment_methods ORDER BY position, id`)
	if err != nil {
		return ref, fmt.Errorf("query payment methods: %w", err)
	}
	for rows.Next() {
		var m core.PaymentMethod
		var card int
		if err := rows.Scan(&m.ID, &m.Name, &m.FeePct, &card); err != nil {
			rows.Close()
			return ref, fmt.Errorf("scan payment method: %w", err)
		}
		m.CardSettlement = card != 0
		ref.PaymentMethods = append(ref.PaymentMethods, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ref, fmt.Errorf("iterate payment methods: %w", err)
	}

	return ref, nil
}

// ReplaceReference overwrites the cached reference tables. Called when
// the worker pulls a fresh copy from the spreadsheet.
func (r *SQLiteRepository) ReplaceReference(ctx context.Context, ref core.Reference) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback()

	for _, table := range []string{"categories", "accounts", "payment_methods"} {
		if _, err := dbTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i, c := range ref.Categories {
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO categories (id, name, cat_group, position) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, c.Group, i); err != nil {
			return fmt.Errorf("insert category %s: %w", c.ID, err)
		}
	}
	for i, a := range ref.Accounts {
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO accounts (id, name, seed_balance_cents, position) VALUES (?, ?, ?, ?)`,
			a.ID, a.Name, a.SeedBalance.Cents, i); err != nil {
			return fmt.Errorf("insert account %s: %w", a.ID, err)
		}
	}
	for i, m := range ref.PaymentMethods {
		card := 0
		if m.CardSettlement {
			card = 1
		}
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO payment_methods (id, name, fee_pct, card_settlement, position) VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.Name, m.FeePct, card, i); err != nil {
			return fmt.Errorf("insert payment method %s: %w", m.ID, err)
		}
	}
	return dbTx.Commit()
}

// PendingSyncTransaction carries the minimal data for sync queue messages.
type PendingSyncTransaction struct {
	ID        string
	Attempts  int
	CreatedAt time.Time
}

// GetPendingSyncTransactions returns transactions not yet pushed to Sheets.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sync_attempts, created_at
		FROM transactions
		WHERE sync_status = 'pending'
		ORDER BY created_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending sync: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.Attempts, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending sync: %w", err)
	}
	return out, nil
}

// MarkSynced marks a transaction as successfully pushed to Sheets.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET sync_status = 'synced', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncRetry counts a failed push attempt while keeping the row in
// the pending state so the next poll picks it up again.
func (r *SQLiteRepository) MarkSyncRetry(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET sync_attempts = sync_attempts + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark sync retry: %w", err)
	}
	return nil
}

// MarkSyncError records a failed push attempt.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET sync_status = 'error', sync_attempts = sync_attempts + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	var kind, repeat, date string
	err := row.Scan(&tx.ID, &kind, &tx.Amount.Cents, &date, &tx.Description,
		&tx.CategoryID, &tx.AccountID, &tx.TargetAccountID, &tx.PaymentMethodID,
		&tx.CommissionPct, &repeat, &tx.Installments)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Kind = core.TransactionKind(kind)
	tx.Repeat = core.Recurrence(repeat)
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s has invalid date %q: %w", tx.ID, date, err)
	}
	tx.Date = d
	return tx, nil
}
