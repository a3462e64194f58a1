package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"fluxo/internal/core"
	"fluxo/internal/report"
	"fluxo/internal/services"
)

// moneyDTO serializes an amount both as raw cents and display text so
// clients never re-derive formatting.
type moneyDTO struct {
	Cents     int64  `json:"cents"`
	Formatted string `json:"formatted"`
}

func moneyJSON(m core.Money) moneyDTO {
	return moneyDTO{Cents: m.Cents, Formatted: m.String()}
}

type namedTotalDTO struct {
	Name  string   `json:"name"`
	Total moneyDTO `json:"total"`
}

type reportDTO struct {
	Month              int             `json:"month"`
	Year               int             `json:"year"`
	GrossRevenue       moneyDTO        `json:"gross_revenue"`
	IncomeByCategory   []namedTotalDTO `json:"income_by_category"`
	FeesByMethod       []namedTotalDTO `json:"fees_by_method"`
	TotalFees          moneyDTO        `json:"total_fees"`
	TotalCommissions   moneyDTO        `json:"total_commissions"`
	NetRevenue         moneyDTO        `json:"net_revenue"`
	ExpensesByCategory []namedTotalDTO `json:"expenses_by_category"`
	TotalExpenses      moneyDTO        `json:"total_expenses"`
	NetProfit          moneyDTO        `json:"net_profit"`
	MarginPct          float64         `json:"margin_pct"`
}

func buildReportResponse(r report.Report) reportDTO {
	return reportDTO{
		Month:              r.Month,
		Year:               r.Year,
		GrossRevenue:       moneyJSON(r.GrossRevenue),
		IncomeByCategory:   categoryTotals(r.IncomeByCategory),
		FeesByMethod:       methodFees(r.FeesByMethod),
		TotalFees:          moneyJSON(r.TotalFees),
		TotalCommissions:   moneyJSON(r.TotalCommissions),
		NetRevenue:         moneyJSON(r.NetRevenue),
		ExpensesByCategory: categoryTotals(r.ExpensesByCategory),
		TotalExpenses:      moneyJSON(r.TotalExpenses),
		NetProfit:          moneyJSON(r.NetProfit),
		MarginPct:          r.MarginPct,
	}
}

func categoryTotals(totals []report.CategoryTotal) []namedTotalDTO {
	out := make([]namedTotalDTO, 0, len(totals))
	for _, t := range totals {
		out = append(out, namedTotalDTO{Name: t.Name, Total: moneyJSON(t.Total)})
	}
	return out
}

func methodFees(fees []report.MethodFee) []namedTotalDTO {
	out := make([]namedTotalDTO, 0, len(fees))
	for _, f := range fees {
		out = append(out, namedTotalDTO{Name: f.Name, Total: moneyJSON(f.Total)})
	}
	return out
}

type balanceDTO struct {
	AccountID string   `json:"account_id"`
	Name      string   `json:"name"`
	Balance   moneyDTO `json:"balance"`
}

type balancesResponse struct {
	AsOf     string       `json:"as_of"`
	Balances []balanceDTO `json:"balances"`
}

func buildBalancesResponse(entries []report.AccountBalanceEntry, asOf core.Date) balancesResponse {
	return balancesResponse{AsOf: asOf.String(), Balances: balanceEntries(entries)}
}

func balanceEntries(entries []report.AccountBalanceEntry) []balanceDTO {
	out := make([]balanceDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, balanceDTO{
			AccountID: e.AccountID,
			Name:      e.Name,
			Balance:   moneyJSON(e.Balance),
		})
	}
	return out
}

type dashboardDTO struct {
	Month            int             `json:"month"`
	Year             int             `json:"year"`
	Report           reportDTO       `json:"report"`
	Balances         []balanceDTO    `json:"balances"`
	ExpenseBreakdown []namedTotalDTO `json:"expense_breakdown"`
	SkippedTxIDs     []string        `json:"skipped_tx_ids,omitempty"`
	TransactionCount int             `json:"transaction_count"`
}

func buildDashboardResponse(d services.DashboardSummary) dashboardDTO {
	return dashboardDTO{
		Month:            d.Month,
		Year:             d.Year,
		Report:           buildReportResponse(d.Report),
		Balances:         balanceEntries(d.Balances),
		ExpenseBreakdown: categoryTotals(d.ExpenseBreakdown),
		SkippedTxIDs:     d.SkippedTxIDs,
		TransactionCount: d.TransactionCount,
	}
}

type transactionDTO struct {
	ID              string   `json:"id"`
	Kind            string   `json:"kind"`
	Amount          moneyDTO `json:"amount"`
	Date            string   `json:"date"`
	Description     string   `json:"description,omitempty"`
	CategoryID      string   `json:"category_id,omitempty"`
	AccountID       string   `json:"account_id"`
	TargetAccountID string   `json:"target_account_id,omitempty"`
	PaymentMethodID string   `json:"payment_method_id,omitempty"`
	CommissionPct   float64  `json:"commission_pct,omitempty"`
	Repeat          string   `json:"repeat"`
	Installments    int      `json:"installments,omitempty"`
}

func buildTransactionResponse(tx core.Transaction) transactionDTO {
	return transactionDTO{
		ID:              tx.ID,
		Kind:            string(tx.Kind),
		Amount:          moneyJSON(tx.Amount),
		Date:            tx.Date.String(),
		Description:     tx.Description,
		CategoryID:      tx.CategoryID,
		AccountID:       tx.AccountID,
		TargetAccountID: tx.TargetAccountID,
		PaymentMethodID: tx.PaymentMethodID,
		CommissionPct:   tx.CommissionPct,
		Repeat:          string(tx.Repeat),
		Installments:    tx.Installments,
	}
}

type referenceResponse struct {
	Categories     []categoryDTO `json:"categories"`
	Accounts       []accountDTO  `json:"accounts"`
	PaymentMethods []methodDTO   `json:"payment_methods"`
}

type categoryDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group,omitempty"`
}

type accountDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	SeedBalance moneyDTO `json:"seed_balance"`
}

type methodDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	FeePct         float64 `json:"fee_pct"`
	CardSettlement bool    `json:"card_settlement"`
}

func buildReferenceResponse(ref core.Reference) referenceResponse {
	out := referenceResponse{
		Categories:     make([]categoryDTO, 0, len(ref.Categories)),
		Accounts:       make([]accountDTO, 0, len(ref.Accounts)),
		PaymentMethods: make([]methodDTO, 0, len(ref.PaymentMethods)),
	}
	for _, c := range ref.Categories {
		out.Categories = append(out.Categories, categoryDTO{ID: c.ID, Name: c.Name, Group: c.Group})
	}
	for _, a := range ref.Accounts {
		out.Accounts = append(out.Accounts, accountDTO{ID: a.ID, Name: a.Name, SeedBalance: moneyJSON(a.SeedBalance)})
	}
	for _, m := range ref.PaymentMethods {
		out.PaymentMethods = append(out.PaymentMethods, methodDTO{
			ID: m.ID, Name: m.Name, FeePct: m.FeePct, CardSettlement: m.CardSettlement,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
