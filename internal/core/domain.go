package core

import (
	"errors"
	"strings"
)

const (
	Income   TransactionKind = "INCOME"
	Expense  TransactionKind = "EXPENSE"
	Transfer TransactionKind = "TRANSFER"
)

const (
	RepeatNone        Recurrence = "NONE"
	RepeatFixed       Recurrence = "FIXO"
	RepeatInstallment Recurrence = "PARCELADO"
)

// Income category groups used by the registrations surface.
const (
	GroupLodging     = "hospedagem"
	GroupOtherIncome = "outras_receitas"
)

type (
	TransactionKind string

	Recurrence string

	// Transaction is a stored ledger entry, immutable once projected.
	Transaction struct {
		ID              string
		Kind            TransactionKind
		Amount          Money
		Date            Date
		Description     string
		CategoryID      string // empty for TRANSFER
		AccountID       string // target for INCOME, source for EXPENSE/TRANSFER
		TargetAccountID string // only for TRANSFER
		PaymentMethodID string // empty for TRANSFER
		CommissionPct   float64
		Repeat          Recurrence
		Installments    int
	}

	// PaymentMethod carries the fee applied to income routed through it and
	// whether settlement is deferred like a credit card.
	PaymentMethod struct {
		ID             string
		Name           string
		FeePct         float64
		CardSettlement bool
	}

	Category struct {
		ID    string
		Name  string
		Group string // GroupLodging or GroupOtherIncome, income categories only
	}

	Account struct {
		ID          string
		Name        string
		SeedBalance Money
	}
)

var (
	ErrInvalidDate         = errors.New("invalid transaction date")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidKind         = errors.New("invalid transaction kind")
	ErrInvalidRecurrence   = errors.New("invalid recurrence")
	ErrInvalidCommission   = errors.New("commission percent out of range")
	ErrEmptyAccount        = errors.New("empty account reference")
	ErrEmptyTargetAccount  = errors.New("transfer requires a target account")
	ErrTransferHasCategory = errors.New("transfer cannot carry a category")
)

func (k TransactionKind) Valid() bool {
	switch k {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

func (r Recurrence) Valid() bool {
	switch r {
	case RepeatNone, RepeatFixed, RepeatInstallment, "":
		return true
	}
	return false
}

// Normalized maps the legacy empty value to NONE. Stores that constrain
// the recurrence column must persist the normalized form.
func (r Recurrence) Normalized() Recurrence {
	if r == "" {
		return RepeatNone
	}
	return r
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !t.Repeat.Valid() {
		return ErrInvalidRecurrence
	}
	if t.CommissionPct < 0 || t.CommissionPct > 100 {
		return ErrInvalidCommission
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccount
	}
	if t.Kind == Transfer {
		if strings.TrimSpace(t.TargetAccountID) == "" {
			return ErrEmptyTargetAccount
		}
		if t.CategoryID != "" {
			return ErrTransferHasCategory
		}
	}
	return nil
}

// InstallmentCount returns the effective number of installments: N for a
// PARCELADO transaction with N >= 2, otherwise 1. An installment flag with
// a count below 2 degrades to a single event instead of dividing by an
// invalid denominator.
func (t Transaction) InstallmentCount() int {
	if t.Repeat == RepeatInstallment && t.Installments >= 2 {
		return t.Installments
	}
	return 1
}

func (m PaymentMethod) Validate() error {
	if m.FeePct < 0 || m.FeePct > 100 {
		return errors.New("fee percent out of range")
	}
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("empty payment method name")
	}
	return nil
}
