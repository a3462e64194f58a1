// Package projection expands stored transactions into dated cash-flow
// events. Projection is pure: one transaction in, N events out, no shared
// state. All aggregation (balances, category totals, DRE) consumes the
// event slice produced here.
package projection

import "fluxo/internal/core"

// Policy constants. The fixed horizon encodes a product decision (a 5-year
// projection ceiling for open-ended recurrences), independent of any data.
const (
	FixedHorizonMonths      = 60
	CardSettlementDelayDays = 30
	InstallmentStepDays     = 30
)

// Event is a single projected cash-flow entry. Events are derived, never
// persisted; their lifetime is one aggregation pass.
type Event struct {
	Date        core.Date
	Value       core.Money
	Installment int // 1-based index within the originating transaction
	Recurring   bool
	Tx          *core.Transaction
}
