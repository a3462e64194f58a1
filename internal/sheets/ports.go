package sheets

import (
	"context"
	"errors"

	"fluxo/internal/core"
)

// ErrNotFound is returned by any adapter when the referenced transaction
// does not exist. Handlers map it to a 404.
var ErrNotFound = errors.New("transaction not found")

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// TransactionLister returns the full transaction snapshot. Projection
	// and reporting always work from the complete set, so there is no
	// month-scoped variant.
	TransactionLister interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	// ReferenceReader loads the category plan, accounts and payment methods.
	ReferenceReader interface {
		ListReference(ctx context.Context) (core.Reference, error)
	}

	TransactionDeleter interface {
		DeleteTransaction(ctx context.Context, id string) error
	}
)
