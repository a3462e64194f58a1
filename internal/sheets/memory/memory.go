// Package memory implements the sheets ports with an in-process store.
// Used for development and tests; the reference tables can be seeded
// from plain text files.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fluxo/internal/core"
	"fluxo/internal/projection"
	"fluxo/internal/sheets"
)

type Store struct {
	mu  sync.Mutex
	ref core.Reference
	txs []core.Transaction
}

func New(ref core.Reference) *Store {
	return &Store{ref: ref}
}

// NewFromFiles seeds the reference tables from semicolon-separated files
// under base: seed_categories.txt (id;name;group), seed_accounts.txt
// (id;name;seed balance) and seed_methods.txt (id;name;fee pct;card).
// Missing files fall back to a minimal lodging setup.
func NewFromFiles(base string) *Store {
	ref := core.Reference{}
	for _, line := range readLines(filepath.Join(base, "seed_categories.txt")) {
		f := splitFields(line, 3)
		if f[0] == "" || f[1] == "" {
			continue
		}
		ref.Categories = append(ref.Categories, core.Category{ID: f[0], Name: f[1], Group: strings.ToLower(f[2])})
	}
	for _, line := range readLines(filepath.Join(base, "seed_accounts.txt")) {
		f := splitFields(line, 3)
		if f[0] == "" || f[1] == "" {
			continue
		}
		acct := core.Account{ID: f[0], Name: f[1]}
		if cents, err := core.ParseDecimalToCents(f[2]); err == nil {
			acct.SeedBalance = core.Money{Cents: cents}
		}
		ref.Accounts = append(ref.Accounts, acct)
	}
	for _, line := range readLines(filepath.Join(base, "seed_methods.txt")) {
		f := splitFields(line, 4)
		if f[0] == "" || f[1] == "" {
			continue
		}
		m := core.PaymentMethod{ID: f[0], Name: f[1]}
		if pct, err := core.ParseDecimalToCents(f[2]); err == nil {
			m.FeePct = float64(pct) / 100.0
		}
		if f[3] != "" {
			m.CardSettlement = strings.EqualFold(f[3], "sim") || f[3] == "1" || strings.EqualFold(f[3], "true")
		} else {
			m.CardSettlement = projection.DetectCardSettlement(m.Name)
		}
		ref.PaymentMethods = append(ref.PaymentMethods, m)
	}

	if len(ref.Categories) == 0 {
		ref.Categories = []core.Category{
			{ID: "uh1", Name: "Chalé UH 1", Group: core.GroupLodging},
			{ID: "uh2", Name: "Chalé UH 2", Group: core.GroupLodging},
			{ID: "outras", Name: "Outras Receitas", Group: core.GroupOtherIncome},
			{ID: "limpeza", Name: "Limpeza"},
		}
	}
	if len(ref.Accounts) == 0 {
		ref.Accounts = []core.Account{
			{ID: "stone", Name: "Conta Stone"},
			{ID: "caixa", Name: "Caixa"},
		}
	}
	if len(ref.PaymentMethods) == 0 {
		ref.PaymentMethods = []core.PaymentMethod{
			{ID: "pix", Name: "Pix"},
			{ID: "dinheiro", Name: "Dinheiro"},
			{ID: "cartao", Name: "Cartão de Crédito", FeePct: 3, CardSettlement: true},
		}
	}
	return New(ref)
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return fmt.Sprintf("mem:%d", len(s.txs)), nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.txs...), nil
}

func (s *Store) ListReference(_ context.Context) (core.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := core.Reference{
		Categories:     append([]core.Category(nil), s.ref.Categories...),
		Accounts:       append([]core.Account(nil), s.ref.Accounts...),
		PaymentMethods: append([]core.PaymentMethod(nil), s.ref.PaymentMethods...),
	}
	return ref, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.txs {
		if tx.ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", sheets.ErrNotFound, id)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// splitFields splits a seed line on semicolons and pads to n fields.
func splitFields(line string, n int) []string {
	parts := strings.Split(line, ";")
	out := make([]string, n)
	for i := 0; i < n && i < len(parts); i++ {
		out[i] = strings.TrimSpace(parts[i])
	}
	return out
}
