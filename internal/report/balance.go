// Package report reduces projected cash-flow events into the figures the
// product shows: per-account balances, category breakdowns and the monthly
// income statement (DRE). Every function here is a pure reduction over the
// event slice plus read-only lookup tables.
package report

import (
	"fluxo/internal/core"
	"fluxo/internal/projection"
)

// AccountBalance computes the balance of one account as of a reference
// date: the seed balance plus every settled event attributed to the
// account. Income credits, expenses debit, transfers debit the source and
// credit the target. Each event is attributed at most once per account.
func AccountBalance(acct core.Account, events []projection.Event, asOf core.Date) core.Money {
	balance := acct.SeedBalance
	for _, ev := range events {
		if ev.Date.After(asOf.Time) {
			continue
		}
		tx := ev.Tx
		switch tx.Kind {
		case core.Income:
			if tx.AccountID == acct.ID {
				balance = balance.Add(ev.Value)
			}
		case core.Expense:
			if tx.AccountID == acct.ID {
				balance = balance.Sub(ev.Value)
			}
		case core.Transfer:
			if tx.AccountID == acct.ID {
				balance = balance.Sub(ev.Value)
			}
			if tx.TargetAccountID == acct.ID {
				balance = balance.Add(ev.Value)
			}
		}
	}
	return balance
}

// AccountBalances computes the balance of every account independently over
// the same event slice.
func AccountBalances(accts []core.Account, events []projection.Event, asOf core.Date) []AccountBalanceEntry {
	out := make([]AccountBalanceEntry, 0, len(accts))
	for _, a := range accts {
		out = append(out, AccountBalanceEntry{
			AccountID: a.ID,
			Name:      a.Name,
			Balance:   AccountBalance(a, events, asOf),
		})
	}
	return out
}

type AccountBalanceEntry struct {
	AccountID string
	Name      string
	Balance   core.Money
}
