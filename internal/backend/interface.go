// Package backend selects and wires a data backend (memory, sqlite or
// sheets) behind the sheets ports, so the HTTP layer and the reporting
// pipeline do not care where the ledger lives.
package backend

import (
	"context"

	"fluxo/internal/amqp"
	"fluxo/internal/sheets"
	"fluxo/internal/storage"
)

// Backend is the unified surface every data backend provides.
type Backend interface {
	sheets.TransactionWriter
	sheets.TransactionLister
	sheets.ReferenceReader
	sheets.TransactionDeleter
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance, the AMQP client when the
// backend supports queued sync, and an optional cleanup function. For the
// SQLite backend the repository and the remote writer are exposed so the
// caller can run the poll-based sync fallback when no queue is available.
type BackendResult struct {
	Backend Backend
	AMQP    *amqp.Client
	SQLite  *storage.SQLiteRepository
	Remote  sheets.TransactionWriter
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	}
	return false
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Memory backend seed directory
	DataDirectory string
}
