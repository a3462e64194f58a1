package report

import (
	"sort"

	"fluxo/internal/core"
	"fluxo/internal/projection"
)

// CategoryTotal is an amount aggregated under one category name.
type CategoryTotal struct {
	Name  string
	Total core.Money
}

// MethodFee is the fee deduction accumulated for one payment method.
type MethodFee struct {
	Name  string
	Total core.Money
}

// TotalsByCategory groups events by the category referenced by their
// originating transaction, in the configured category order. Zero totals
// are dropped. Events referencing an unknown category cannot be attributed
// and are excluded; they still count for cash-flow purposes elsewhere.
func TotalsByCategory(events []projection.Event, categories []core.Category) []CategoryTotal {
	sums := make(map[string]int64, len(categories))
	for _, ev := range events {
		sums[ev.Tx.CategoryID] += ev.Value.Cents
	}
	out := make([]CategoryTotal, 0, len(categories))
	for _, cat := range categories {
		if total := sums[cat.ID]; total != 0 {
			out = append(out, CategoryTotal{Name: cat.Name, Total: core.Money{Cents: total}})
		}
	}
	return out
}

// TotalsByCategoryWithFallback is the pie-chart variant: unattributable
// events are folded into the fallback bucket instead of being dropped, and
// the result is sorted descending by total.
func TotalsByCategoryWithFallback(events []projection.Event, categories []core.Category, fallback string) []CategoryTotal {
	names := make(map[string]string, len(categories))
	for _, cat := range categories {
		names[cat.ID] = cat.Name
	}
	sums := map[string]int64{}
	order := make([]string, 0, len(categories))
	for _, ev := range events {
		name, ok := names[ev.Tx.CategoryID]
		if !ok {
			name = fallback
		}
		if _, seen := sums[name]; !seen {
			order = append(order, name)
		}
		sums[name] += ev.Value.Cents
	}
	out := make([]CategoryTotal, 0, len(order))
	for _, name := range order {
		if total := sums[name]; total != 0 {
			out = append(out, CategoryTotal{Name: name, Total: core.Money{Cents: total}})
		}
	}
	return SortedByTotal(out)
}

// SortedByTotal returns a copy ordered descending by total. The input order
// breaks ties, so the sort is stable for legend rendering.
func SortedByTotal(totals []CategoryTotal) []CategoryTotal {
	out := make([]CategoryTotal, len(totals))
	copy(out, totals)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.Cents > out[j].Total.Cents
	})
	return out
}

// FeeTotalsByMethod computes, per payment method in configured order, the
// fee percentage applied to the value routed through that method. Methods
// with a zero fee total are dropped.
func FeeTotalsByMethod(events []projection.Event, methods []core.PaymentMethod) []MethodFee {
	routed := make(map[string]int64, len(methods))
	for _, ev := range events {
		routed[ev.Tx.PaymentMethodID] += ev.Value.Cents
	}
	out := make([]MethodFee, 0, len(methods))
	for _, m := range methods {
		fee := (core.Money{Cents: routed[m.ID]}).Percent(m.FeePct)
		if fee.Cents != 0 {
			out = append(out, MethodFee{Name: m.Name, Total: fee})
		}
	}
	return out
}
