package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fluxo/internal/core"
)

const maxBodyBytes = 1 << 20

// transactionRequest is the JSON payload for creating a transaction.
// Amounts arrive as decimal strings ("1500,00" or "1500.00") and are
// converted to cents at this edge.
type transactionRequest struct {
	Kind            string  `json:"kind"`
	Amount          string  `json:"amount"`
	Date            string  `json:"date"`
	Description     string  `json:"description"`
	CategoryID      string  `json:"category_id"`
	AccountID       string  `json:"account_id"`
	TargetAccountID string  `json:"target_account_id"`
	PaymentMethodID string  `json:"payment_method_id"`
	CommissionPct   float64 `json:"commission_pct"`
	Repeat          string  `json:"repeat"`
	Installments    int     `json:"installments"`
}

func parseTransactionRequest(r *http.Request) (core.Transaction, error) {
	var req transactionRequest
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return core.Transaction{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	return req.toTransaction()
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	kind := core.TransactionKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	if !kind.Valid() {
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrInvalidKind, req.Kind)
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, req.Amount)
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}

	repeat := core.Recurrence(strings.ToUpper(strings.TrimSpace(req.Repeat)))
	if repeat == "" {
		repeat = core.RepeatNone
	}
	if !repeat.Valid() {
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrInvalidRecurrence, req.Repeat)
	}

	tx := core.Transaction{
		Kind:            kind,
		Amount:          core.Money{Cents: cents},
		Date:            date,
		Description:     strings.TrimSpace(req.Description),
		CategoryID:      strings.TrimSpace(req.CategoryID),
		AccountID:       strings.TrimSpace(req.AccountID),
		TargetAccountID: strings.TrimSpace(req.TargetAccountID),
		PaymentMethodID: strings.TrimSpace(req.PaymentMethodID),
		CommissionPct:   req.CommissionPct,
		Repeat:          repeat,
		Installments:    req.Installments,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// parseYearMonth reads month/year query params, defaulting to the current
// period when absent.
func parseYearMonth(q url.Values, now time.Time) (month, year int, err error) {
	month, year = int(now.Month()), now.Year()
	if v := q.Get("month"); v != "" {
		month, err = strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return 0, 0, fmt.Errorf("invalid month: %q", v)
		}
	}
	if v := q.Get("year"); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil || year < 1970 || year > 9999 {
			return 0, 0, fmt.Errorf("invalid year: %q", v)
		}
	}
	return month, year, nil
}

// parseAsOf reads the as_of query param, defaulting to today.
func parseAsOf(q url.Values, now time.Time) (core.Date, error) {
	if v := q.Get("as_of"); v != "" {
		return core.ParseDate(v)
	}
	return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
}

func parseTrendLength(q url.Values) (int, error) {
	v := q.Get("months")
	if v == "" {
		return 12, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 60 {
		return 0, fmt.Errorf("invalid months: %q", v)
	}
	return n, nil
}
