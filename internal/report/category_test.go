package report

import (
	"reflect"
	"testing"

	"fluxo/internal/core"
	"fluxo/internal/projection"
)

func eventsFor(txs []core.Transaction) []projection.Event {
	events, _ := projection.ProjectAll(txs, nil)
	return events
}

func TestTotalsByCategoryConfigOrder(t *testing.T) {
	cats := []core.Category{
		{ID: "c1", Name: "Limpeza"},
		{ID: "c2", Name: "Manutenção"},
		{ID: "c3", Name: "Energia"},
	}
	events := eventsFor([]core.Transaction{
		{ID: "t1", Kind: core.Expense, Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 1, 1), AccountID: "a", CategoryID: "c3"},
		{ID: "t2", Kind: core.Expense, Amount: core.Money{Cents: 300}, Date: core.NewDate(2024, 1, 1), AccountID: "a", CategoryID: "c1"},
		{ID: "t3", Kind: core.Expense, Amount: core.Money{Cents: 200}, Date: core.NewDate(2024, 1, 1), AccountID: "a", CategoryID: "c1"},
	})

	got := TotalsByCategory(events, cats)
	want := []CategoryTotal{
		{Name: "Limpeza", Total: core.Money{Cents: 500}},
		{Name: "Energia", Total: core.Money{Cents: 100}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TotalsByCategory() = %v, want %v (config order, zero groups dropped)", got, want)
	}
}

func TestSortedByTotalDescending(t *testing.T) {
	in := []CategoryTotal{
		{Name: "A", Total: core.Money{Cents: 100}},
		{Name: "B", Total: core.Money{Cents: 500}},
		{Name: "C", Total: core.Money{Cents: 300}},
	}
	got := SortedByTotal(in)
	if got[0].Name != "B" || got[1].Name != "C" || got[2].Name != "A" {
		t.Errorf("SortedByTotal() = %v", got)
	}
	// Input must be untouched.
	if in[0].Name != "A" {
		t.Error("SortedByTotal() mutated its input")
	}
}

func TestTotalsByCategoryWithFallback(t *testing.T) {
	cats := []core.Category{{ID: "c1", Name: "Chalé UH 1"}}
	events := eventsFor([]core.Transaction{
		{ID: "t1", Kind: core.Income, Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 1, 1), AccountID: "a", CategoryID: "c1"},
		{ID: "t2", Kind: core.Income, Amount: core.Money{Cents: 900}, Date: core.NewDate(2024, 1, 1), AccountID: "a", CategoryID: "ghost"},
	})
	got := TotalsByCategoryWithFallback(events, cats, "Outras Receitas")
	want := []CategoryTotal{
		{Name: "Outras Receitas", Total: core.Money{Cents: 900}},
		{Name: "Chalé UH 1", Total: core.Money{Cents: 100}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TotalsByCategoryWithFallback() = %v, want %v", got, want)
	}
}

func TestFeeTotalsByMethodConfigOrder(t *testing.T) {
	methods := []core.PaymentMethod{
		{ID: "m1", Name: "Cartão", FeePct: 3},
		{ID: "m2", Name: "Pix", FeePct: 0},
		{ID: "m3", Name: "Getnet", FeePct: 2},
	}
	events := eventsFor([]core.Transaction{
		{ID: "t1", Kind: core.Income, Amount: core.Money{Cents: 100000}, Date: core.NewDate(2024, 1, 1), AccountID: "a", PaymentMethodID: "m3"},
		{ID: "t2", Kind: core.Income, Amount: core.Money{Cents: 100000}, Date: core.NewDate(2024, 1, 1), AccountID: "a", PaymentMethodID: "m1"},
		{ID: "t3", Kind: core.Income, Amount: core.Money{Cents: 100000}, Date: core.NewDate(2024, 1, 1), AccountID: "a", PaymentMethodID: "m2"},
	})
	got := FeeTotalsByMethod(events, methods)
	// Configured order, zero-fee methods dropped.
	want := []MethodFee{
		{Name: "Cartão", Total: core.Money{Cents: 3000}},
		{Name: "Getnet", Total: core.Money{Cents: 2000}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FeeTotalsByMethod() = %v, want %v", got, want)
	}
}
