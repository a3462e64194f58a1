package google

import (
	"strconv"
	"strings"

	"fluxo/internal/core"
	"fluxo/internal/projection"
)

// Ledger row layout, columns A:L.
//
//	ID | Data | Tipo | Valor | Descrição | Categoria | Conta |
//	Conta Destino | Forma de Pagamento | Comissão % | Recorrência | Parcelas
//
// Operator sheets use the Portuguese labels for kind and recurrence; the
// canonical uppercase tokens are accepted too so exported rows round-trip.
func parseTransactionRow(cols []string) (core.Transaction, bool) {
	if len(cols) < 7 {
		return core.Transaction{}, false
	}
	id := strings.TrimSpace(cols[0])
	if id == "" {
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(strings.TrimSpace(cols[1]))
	if err != nil {
		return core.Transaction{}, false
	}
	kind, ok := parseKind(cols[2])
	if !ok {
		return core.Transaction{}, false
	}
	cents, ok := parseAmountToCents(cols[3])
	if !ok {
		return core.Transaction{}, false
	}

	tx := core.Transaction{
		ID:          id,
		Kind:        kind,
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Description: strings.TrimSpace(cols[4]),
		CategoryID:  strings.TrimSpace(cols[5]),
		AccountID:   strings.TrimSpace(cols[6]),
		Repeat:      core.RepeatNone,
	}
	if len(cols) > 7 {
		tx.TargetAccountID = strings.TrimSpace(cols[7])
	}
	if len(cols) > 8 {
		tx.PaymentMethodID = strings.TrimSpace(cols[8])
	}
	if len(cols) > 9 {
		if pct, err := strconv.ParseFloat(normalizeDecimal(cols[9]), 64); err == nil {
			tx.CommissionPct = pct
		}
	}
	if len(cols) > 10 {
		if rep, ok := parseRecurrence(cols[10]); ok {
			tx.Repeat = rep
		}
	}
	if len(cols) > 11 {
		if n, err := strconv.Atoi(strings.TrimSpace(cols[11])); err == nil {
			tx.Installments = n
		}
	}
	if tx.Validate() != nil {
		return core.Transaction{}, false
	}
	return tx, true
}

func transactionRow(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.String(),
		string(tx.Kind),
		tx.Amount.Decimal(),
		tx.Description,
		tx.CategoryID,
		tx.AccountID,
		tx.TargetAccountID,
		tx.PaymentMethodID,
		tx.CommissionPct,
		string(tx.Repeat),
		tx.Installments,
	}
}

// Reference tabs: Categorias A:C = ID | Nome | Grupo,
// Contas A:C = ID | Nome | Saldo Inicial,
// Formas de Pagamento A:D = ID | Nome | Taxa % | Liquidação Cartão.

func parseCategoryRow(cols []string) (core.Category, bool) {
	if len(cols) < 2 || cols[0] == "" || cols[1] == "" {
		return core.Category{}, false
	}
	cat := core.Category{ID: cols[0], Name: cols[1]}
	if len(cols) > 2 {
		cat.Group = strings.ToLower(cols[2])
	}
	return cat, true
}

func parseAccountRow(cols []string) (core.Account, bool) {
	if len(cols) < 2 || cols[0] == "" || cols[1] == "" {
		return core.Account{}, false
	}
	acct := core.Account{ID: cols[0], Name: cols[1]}
	if len(cols) > 2 {
		if cents, ok := parseAmountToCents(cols[2]); ok {
			acct.SeedBalance = core.Money{Cents: cents}
		}
	}
	return acct, true
}

func parsePaymentMethodRow(cols []string) (core.PaymentMethod, bool) {
	if len(cols) < 2 || cols[0] == "" || cols[1] == "" {
		return core.PaymentMethod{}, false
	}
	m := core.PaymentMethod{ID: cols[0], Name: cols[1]}
	if len(cols) > 2 {
		if pct, err := strconv.ParseFloat(normalizeDecimal(cols[2]), 64); err == nil {
			m.FeePct = pct
		}
	}
	if len(cols) > 3 && cols[3] != "" {
		m.CardSettlement = parseBool(cols[3])
	} else {
		// Older sheets have no settlement column; fall back to the name
		// heuristic used during the original data migration.
		m.CardSettlement = projection.DetectCardSettlement(m.Name)
	}
	return m, true
}

func parseKind(s string) (core.TransactionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "receita":
		return core.Income, true
	case "expense", "despesa":
		return core.Expense, true
	case "transfer", "transferência", "transferencia":
		return core.Transfer, true
	}
	return "", false
}

func parseRecurrence(s string) (core.Recurrence, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "não", "nao":
		return core.RepeatNone, true
	case "fixo":
		return core.RepeatFixed, true
	case "parcelado":
		return core.RepeatInstallment, true
	}
	return "", false
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sim", "s", "true", "1", "x":
		return true
	}
	return false
}

func normalizeDecimal(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
}

func parseAmountToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.TrimPrefix(s, "R$")
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return cents, true
}
