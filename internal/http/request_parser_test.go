package http

import (
	"net/url"
	"testing"
	"time"

	"fluxo/internal/core"
)

func TestTransactionRequestToTransaction(t *testing.T) {
	base := transactionRequest{
		Kind:            "income",
		Amount:          "1234,56",
		Date:            "2024-06-10",
		CategoryID:      "uh1",
		AccountID:       "stone",
		PaymentMethodID: "pix",
		Repeat:          "parcelado",
		Installments:    3,
	}

	tx, err := base.toTransaction()
	if err != nil {
		t.Fatalf("toTransaction: %v", err)
	}
	if tx.Kind != core.Income {
		t.Errorf("kind = %s", tx.Kind)
	}
	if tx.Amount.Cents != 123456 {
		t.Errorf("cents = %d", tx.Amount.Cents)
	}
	if tx.Repeat != core.RepeatInstallment || tx.Installments != 3 {
		t.Errorf("repeat = %s/%d", tx.Repeat, tx.Installments)
	}

	cases := []struct {
		name   string
		mutate func(*transactionRequest)
	}{
		{"unknown kind", func(r *transactionRequest) { r.Kind = "loan" }},
		{"negative amount", func(r *transactionRequest) { r.Amount = "-10,00" }},
		{"empty date", func(r *transactionRequest) { r.Date = "" }},
		{"unknown repeat", func(r *transactionRequest) { r.Repeat = "weekly" }},
		{"commission out of range", func(r *transactionRequest) { r.CommissionPct = 120 }},
		{"blank account", func(r *transactionRequest) { r.AccountID = "   " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			if _, err := req.toTransaction(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTransactionRequestEmptyRepeatDefaultsToNone(t *testing.T) {
	req := transactionRequest{
		Kind:      "EXPENSE",
		Amount:    "10.00",
		Date:      "2024-06-10",
		AccountID: "caixa",
	}
	tx, err := req.toTransaction()
	if err != nil {
		t.Fatalf("toTransaction: %v", err)
	}
	if tx.Repeat != core.RepeatNone {
		t.Errorf("repeat = %s, want NONE", tx.Repeat)
	}
}

func TestParseYearMonth(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	month, year, err := parseYearMonth(url.Values{}, now)
	if err != nil || month != 6 || year != 2024 {
		t.Errorf("defaults = %d/%d, %v", month, year, err)
	}

	month, year, err = parseYearMonth(url.Values{"month": {"11"}, "year": {"2025"}}, now)
	if err != nil || month != 11 || year != 2025 {
		t.Errorf("explicit = %d/%d, %v", month, year, err)
	}

	for _, q := range []url.Values{
		{"month": {"0"}},
		{"month": {"13"}},
		{"month": {"abc"}},
		{"year": {"99"}},
	} {
		if _, _, err := parseYearMonth(q, now); err == nil {
			t.Errorf("expected error for %v", q)
		}
	}
}

func TestParseTrendLength(t *testing.T) {
	if n, err := parseTrendLength(url.Values{}); err != nil || n != 12 {
		t.Errorf("default = %d, %v", n, err)
	}
	if n, err := parseTrendLength(url.Values{"months": {"12"}}); err != nil || n != 12 {
		t.Errorf("explicit = %d, %v", n, err)
	}
	for _, v := range []string{"0", "61", "x"} {
		if _, err := parseTrendLength(url.Values{"months": {v}}); err == nil {
			t.Errorf("expected error for %q", v)
		}
	}
}
