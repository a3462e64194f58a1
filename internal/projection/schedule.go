package projection

import (
	"fmt"

	"fluxo/internal/core"
)

// EventScheduler is the strategy interface for expanding one transaction
// into its dated events. Each recurrence mode has its own scheduler.
type EventScheduler interface {
	// Schedule emits the events for tx. cardDelay is true when the payment
	// method settles like a credit card (30-day deferral).
	Schedule(tx *core.Transaction, cardDelay bool) []Event
}

// FixedMonthlyScheduler expands an open-ended (FIXO) transaction into one
// event per calendar month up to Horizon months, each at full value.
// Card settlement delay does not apply to fixed recurrences.
type FixedMonthlyScheduler struct {
	Horizon int
}

func (s FixedMonthlyScheduler) Schedule(tx *core.Transaction, _ bool) []Event {
	horizon := s.Horizon
	if horizon <= 0 {
		horizon = FixedHorizonMonths
	}
	events := make([]Event, 0, horizon)
	for i := 0; i < horizon; i++ {
		events = append(events, Event{
			Date:        tx.Date.AddMonths(i),
			Value:       tx.Amount,
			Installment: i + 1,
			Recurring:   true,
			Tx:          tx,
		})
	}
	return events
}

// InstallmentScheduler splits the amount evenly across the effective
// installment count (1 for non-installment transactions), events 30 days
// apart, the first shifted by the card settlement delay when applicable.
// The split remainder is absorbed by the final installment.
type InstallmentScheduler struct{}

func (InstallmentScheduler) Schedule(tx *core.Transaction, cardDelay bool) []Event {
	count := tx.InstallmentCount()
	parts := core.SplitEven(tx.Amount.Cents, count)
	baseOffset := 0
	if cardDelay {
		baseOffset = CardSettlementDelayDays
	}
	events := make([]Event, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, Event{
			Date:        tx.Date.AddDays(baseOffset + i*InstallmentStepDays),
			Value:       core.Money{Cents: parts[i]},
			Installment: i + 1,
			Tx:          tx,
		})
	}
	return events
}

// schedulers maps recurrence modes to their expansion strategy. NONE,
// PARCELADO and the empty legacy value all route through the installment
// scheduler, which degrades to a single event when no split applies.
var schedulers = map[core.Recurrence]EventScheduler{
	core.RepeatFixed:       FixedMonthlyScheduler{Horizon: FixedHorizonMonths},
	core.RepeatInstallment: InstallmentScheduler{},
	core.RepeatNone:        InstallmentScheduler{},
	core.Recurrence(""):    InstallmentScheduler{},
}

// SchedulerFor returns the scheduler for a recurrence mode.
func SchedulerFor(r core.Recurrence) (EventScheduler, error) {
	s, ok := schedulers[r]
	if !ok {
		return nil, fmt.Errorf("unknown recurrence: %s", r)
	}
	return s, nil
}
