package report

import (
	"fluxo/internal/core"
	"fluxo/internal/projection"
)

// Report is the monthly income statement (DRE): gross revenue, deductions,
// net revenue, operating expenses, net profit and margin, with the category
// and payment-method breakdowns the statement view renders.
type Report struct {
	Month int
	Year  int

	GrossRevenue     core.Money
	IncomeByCategory []CategoryTotal

	FeesByMethod     []MethodFee
	TotalFees        core.Money
	TotalCommissions core.Money

	NetRevenue core.Money

	ExpensesByCategory []CategoryTotal
	TotalExpenses      core.Money

	NetProfit core.Money
	// MarginPct is net profit over gross revenue, in percent. Zero when the
	// period has no revenue; never NaN.
	MarginPct float64
}

// BuildPeriodReport assembles the DRE for one (month, year) from the shared
// projected-event slice. Month membership is evaluated on UTC calendar
// fields so midnight-boundary events never shift periods.
func BuildPeriodReport(events []projection.Event, categories []core.Category, methods []core.PaymentMethod, month, year int) Report {
	var incomes, expenses []projection.Event
	for _, ev := range events {
		if !ev.Date.SameMonth(month, year) {
			continue
		}
		switch ev.Tx.Kind {
		case core.Income:
			incomes = append(incomes, ev)
		case core.Expense:
			expenses = append(expenses, ev)
		}
	}

	r := Report{Month: month, Year: year}

	for _, ev := range incomes {
		r.GrossRevenue = r.GrossRevenue.Add(ev.Value)
		r.TotalCommissions = r.TotalCommissions.Add(ev.Value.Percent(ev.Tx.CommissionPct))
	}
	r.IncomeByCategory = TotalsByCategory(incomes, categories)

	r.FeesByMethod = FeeTotalsByMethod(incomes, methods)
	for _, f := range r.FeesByMethod {
		r.TotalFees = r.TotalFees.Add(f.Total)
	}

	r.NetRevenue = r.GrossRevenue.Sub(r.TotalFees).Sub(r.TotalCommissions)

	r.ExpensesByCategory = TotalsByCategory(expenses, categories)
	for _, c := range r.ExpensesByCategory {
		r.TotalExpenses = r.TotalExpenses.Add(c.Total)
	}

	r.NetProfit = r.NetRevenue.Sub(r.TotalExpenses)
	if r.GrossRevenue.Cents > 0 {
		r.MarginPct = float64(r.NetProfit.Cents) / float64(r.GrossRevenue.Cents) * 100
	}
	return r
}
