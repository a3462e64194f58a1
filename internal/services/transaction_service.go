// Package services orchestrates the domain engine: transaction writes
// with spreadsheet sync, and the cached projection/reporting pipeline.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"fluxo/internal/amqp"
	"fluxo/internal/core"
	"fluxo/internal/sheets"
)

// TransactionService coordinates writes across the local store and the
// sync queue. The local write is authoritative; a failed queue publish is
// logged and left for the poll-based processor to pick up.
type TransactionService struct {
	writer     sheets.TransactionWriter
	deleter    sheets.TransactionDeleter
	amqpClient *amqp.Client
	reports    *ReportService
}

func NewTransactionService(writer sheets.TransactionWriter, deleter sheets.TransactionDeleter, amqpClient *amqp.Client, reports *ReportService) *TransactionService {
	return &TransactionService{
		writer:     writer,
		deleter:    deleter,
		amqpClient: amqpClient,
		reports:    reports,
	}
}

// CreateTransaction validates and saves a transaction, assigns an ID when
// missing, and publishes a sync message.
func (s *TransactionService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	ref, err := s.writer.Append(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", tx.ID,
		"kind", tx.Kind,
		"amount_cents", tx.Amount.Cents,
		"ref", ref)

	if s.reports != nil {
		s.reports.Invalidate()
	}

	if err := s.publish(ctx, tx.ID, amqp.ActionCreate); err != nil {
		// The write succeeded locally; sync will catch up later.
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", tx.ID, "error", err)
	}

	return tx, nil
}

// DeleteTransaction removes a transaction and publishes a delete message.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.deleter.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if s.reports != nil {
		s.reports.Invalidate()
	}

	if err := s.publish(ctx, id, amqp.ActionDelete); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}

	return nil
}

func (s *TransactionService) publish(ctx context.Context, id, action string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishTransactionSync(ctx, id, action)
}

// Close releases the AMQP connection.
func (s *TransactionService) Close() error {
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			return fmt.Errorf("close amqp: %w", err)
		}
	}
	return nil
}
