package projection

import (
	"errors"
	"reflect"
	"testing"

	"fluxo/internal/core"
)

var testMethods = []core.PaymentMethod{
	{ID: "pm-cash", Name: "Dinheiro", FeePct: 0},
	{ID: "pm-card", Name: "Cartão de Crédito", FeePct: 3, CardSettlement: true},
	{ID: "pm-pix", Name: "Pix", FeePct: 0},
}

func income(id string, cents int64, date core.Date) core.Transaction {
	return core.Transaction{
		ID:        id,
		Kind:      core.Income,
		Amount:    core.Money{Cents: cents},
		Date:      date,
		AccountID: "stone",
	}
}

func TestProjectSingleEvent(t *testing.T) {
	tx := income("t1", 100000, core.NewDate(2024, 1, 5))
	tx.PaymentMethodID = "pm-cash"

	events, err := Project(tx, testMethods)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Project() produced %d events, want 1", len(events))
	}
	ev := events[0]
	if !ev.Date.Equal(core.NewDate(2024, 1, 5).Time) {
		t.Errorf("event date = %s, want transaction date", ev.Date)
	}
	if ev.Value.Cents != 100000 {
		t.Errorf("event value = %d, want full amount", ev.Value.Cents)
	}
	if ev.Installment != 1 || ev.Recurring {
		t.Errorf("event index/recurring = %d/%v, want 1/false", ev.Installment, ev.Recurring)
	}
}

func TestProjectCardSettlementDelay(t *testing.T) {
	tx := income("t1", 50000, core.NewDate(2024, 1, 5))
	tx.PaymentMethodID = "pm-card"

	events, err := Project(tx, testMethods)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Project() produced %d events, want 1", len(events))
	}
	if want := core.NewDate(2024, 2, 4); !events[0].Date.Equal(want.Time) {
		t.Errorf("card event date = %s, want %s (+30 days)", events[0].Date, want)
	}
}

func TestProjectInstallments(t *testing.T) {
	tx := income("t1", 30000, core.NewDate(2024, 1, 1))
	tx.PaymentMethodID = "pm-cash"
	tx.Repeat = core.RepeatInstallment
	tx.Installments = 3

	events, err := Project(tx, testMethods)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Project() produced %d events, want 3", len(events))
	}
	// 30-day steps from the base date, not calendar months.
	wantDates := []core.Date{
		core.NewDate(2024, 1, 1),
		core.NewDate(2024, 1, 31),
		core.NewDate(2024, 3, 1),
	}
	for i, ev := range events {
		if !ev.Date.Equal(wantDates[i].Time) {
			t.Errorf("installment %d date = %s, want %s", i+1, ev.Date, wantDates[i])
		}
		if ev.Value.Cents != 10000 {
			t.Errorf("installment %d value = %d, want 10000", i+1, ev.Value.Cents)
		}
		if ev.Installment != i+1 {
			t.Errorf("installment index = %d, want %d", ev.Installment, i+1)
		}
	}
}

func TestProjectInstallmentsCardDelayShiftsFirst(t *testing.T) {
	tx := income("t1", 30000, core.NewDate(2024, 1, 1))
	tx.PaymentMethodID = "pm-card"
	tx.Repeat = core.RepeatInstallment
	tx.Installments = 3

	events, err := Project(tx, testMethods)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if want := core.NewDate(2024, 1, 31); !events[0].Date.Equal(want.Time) {
		t.Errorf("first installment = %s, want %s", events[0].Date, want)
	}
	for i := 1; i < len(events); i++ {
		if got := events[i].Date.Sub(events[i-1].Date.Time).Hours(); got != 30*24 {
			t.Errorf("spacing between %d and %d = %v hours, want 720", i, i+1, got)
		}
	}
}

func TestProjectInstallmentConservation(t *testing.T) {
	tx := income("t1", 10000, core.NewDate(2024, 1, 1))
	tx.Repeat = core.RepeatInstallment
	tx.Installments = 3

	events, err := Project(tx, testMethods)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	var sum int64
	for _, ev := range events {
		sum += ev.Value.Cents
	}
	if sum != tx.Amount.Cents {
		t.Errorf("installments sum to %d, want %d", sum, tx.Amount.Cents)
	}
	if events[2].Value.Cents != 3334 {
		t.Errorf("last installment = %d, want remainder absorbed (3334)", events[2].Value.Cents)
	}
}

func TestProjectFixedRecurrence(t *testing.T) {
	tx := income("t1", 80000, core.NewDate(2024, 1, 31))
	tx.PaymentMethodID = "pm-card" // delay must not apply to fixed recurrences
	tx.Repeat = core.RepeatFixed

	events, err := Project(tx, testMethods)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if len(events) != FixedHorizonMonths {
		t.Fatalf("Project() produced %d events, want %d", len(events), FixedHorizonMonths)
	}
	if !events[0].Date.Equal(core.NewDate(2024, 1, 31).Time) {
		t.Errorf("first event = %s, want transaction date", events[0].Date)
	}
	// Day-of-month overflow clamps instead of wrapping into the next month.
	if want := core.NewDate(2024, 2, 29); !events[1].Date.Equal(want.Time) {
		t.Errorf("second event = %s, want %s", events[1].Date, want)
	}
	for i, ev := range events {
		if ev.Value.Cents != 80000 {
			t.Errorf("event %d value = %d, want full amount", i+1, ev.Value.Cents)
		}
		if !ev.Recurring {
			t.Errorf("event %d not flagged recurring", i+1)
		}
		if ev.Installment != i+1 {
			t.Errorf("event %d index = %d", i+1, ev.Installment)
		}
	}
}

func TestProjectInstallmentCountBelowTwoDegrades(t *testing.T) {
	tx := income("t1", 5000, core.NewDate(2024, 6, 10))
	tx.Repeat = core.RepeatInstallment
	tx.Installments = 1

	events, err := Project(tx, testMethods)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if len(events) != 1 || events[0].Value.Cents != 5000 {
		t.Errorf("degraded installment = %d events / %d cents, want 1 / 5000", len(events), events[0].Value.Cents)
	}
}

func TestProjectUnknownMethodMeansNoDelay(t *testing.T) {
	tx := income("t1", 5000, core.NewDate(2024, 6, 10))
	tx.PaymentMethodID = "pm-missing"

	events, err := Project(tx, testMethods)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if !events[0].Date.Equal(core.NewDate(2024, 6, 10).Time) {
		t.Errorf("event date = %s, want transaction date", events[0].Date)
	}
}

func TestProjectRejectsZeroDate(t *testing.T) {
	tx := core.Transaction{ID: "bad", Kind: core.Expense, Amount: core.Money{Cents: 100}, AccountID: "a"}
	if _, err := Project(tx, testMethods); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("Project() error = %v, want ErrInvalidDate", err)
	}
}

func TestProjectIsPure(t *testing.T) {
	tx := income("t1", 30000, core.NewDate(2024, 1, 1))
	tx.Repeat = core.RepeatInstallment
	tx.Installments = 3
	before := tx

	first, err := Project(tx, testMethods)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	second, err := Project(tx, testMethods)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two projections of identical input differ")
	}
	if !reflect.DeepEqual(tx, before) {
		t.Error("Project() mutated its input transaction")
	}
}

func TestProjectAllPartialFailure(t *testing.T) {
	good := income("ok", 1000, core.NewDate(2024, 1, 1))
	bad := core.Transaction{ID: "bad", Kind: core.Income, Amount: core.Money{Cents: 100}, AccountID: "a"}

	events, failures := ProjectAll([]core.Transaction{good, bad}, testMethods)
	if len(events) != 1 {
		t.Errorf("ProjectAll() events = %d, want 1", len(events))
	}
	if len(failures) != 1 || failures[0].TransactionID != "bad" {
		t.Fatalf("ProjectAll() failures = %v, want one for 'bad'", failures)
	}
	if !errors.Is(failures[0], core.ErrInvalidDate) {
		t.Errorf("failure does not unwrap to ErrInvalidDate: %v", failures[0])
	}
}

func TestDetectCardSettlement(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Cartão de Crédito", true},
		{"cartão débito", true},
		{"Crédito Loja", true},
		{"Dinheiro", false},
		{"Pix", false},
		{"Visa", false}, // only the literal substrings match
	}
	for _, tt := range tests {
		if got := DetectCardSettlement(tt.name); got != tt.want {
			t.Errorf("DetectCardSettlement(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
