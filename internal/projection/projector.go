package projection

import (
	"fmt"
	"strings"

	"fluxo/internal/core"
)

// DetectCardSettlement reports whether a payment method display name looks
// like a deferred-settlement card method. This is the one-time migration
// rule for reference rows imported without an explicit settlement flag;
// the projector itself trusts PaymentMethod.CardSettlement.
func DetectCardSettlement(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "cartão") || strings.Contains(n, "crédito")
}

// Project expands one transaction into its dated events. The payment-method
// table resolves the settlement delay; a missing or unknown method means no
// delay and is not an error. A zero or malformed date aborts the projection
// of this transaction.
func Project(tx core.Transaction, methods []core.PaymentMethod) ([]Event, error) {
	if err := tx.Date.Validate(); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	sched, err := SchedulerFor(tx.Repeat)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	// Events share one private copy of the transaction so callers may keep
	// mutating their own slice.
	own := tx
	return sched.Schedule(&own, cardSettles(tx.PaymentMethodID, methods)), nil
}

func cardSettles(methodID string, methods []core.PaymentMethod) bool {
	if methodID == "" {
		return false
	}
	for _, m := range methods {
		if m.ID == methodID {
			return m.CardSettlement
		}
	}
	return false
}

// Failure records a transaction whose projection was rejected. Batch
// projection keeps going; a bad date in one row never hides the rest of
// the dataset.
type Failure struct {
	TransactionID string
	Err           error
}

func (f Failure) Error() string {
	return fmt.Sprintf("project transaction %s: %v", f.TransactionID, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// ProjectAll expands every transaction, collecting per-transaction failures
// instead of aborting the batch.
func ProjectAll(txs []core.Transaction, methods []core.PaymentMethod) ([]Event, []Failure) {
	var events []Event
	var failures []Failure
	for _, tx := range txs {
		evs, err := Project(tx, methods)
		if err != nil {
			failures = append(failures, Failure{TransactionID: tx.ID, Err: err})
			continue
		}
		events = append(events, evs...)
	}
	return events, failures
}
