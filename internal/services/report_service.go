package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fluxo/internal/cache"
	"fluxo/internal/core"
	"fluxo/internal/projection"
	"fluxo/internal/report"
	"fluxo/internal/sheets"
)

// ReportSource is the read side the pipeline projects from.
type ReportSource interface {
	sheets.TransactionLister
	sheets.ReferenceReader
}

// DashboardSummary bundles what the dashboard endpoint serves: the current
// month's income statement, the projected balance per account and how many
// transactions could not be projected.
type DashboardSummary struct {
	Month            int                          `json:"month"`
	Year             int                          `json:"year"`
	Report           report.Report                `json:"report"`
	Balances         []report.AccountBalanceEntry `json:"balances"`
	ExpenseBreakdown []report.CategoryTotal       `json:"expense_breakdown"`
	SkippedTxIDs     []string                     `json:"skipped_tx_ids,omitempty"`
	TransactionCount int                          `json:"transaction_count"`
}

// expenseFallbackBucket collects month expenses whose category is unknown
// so the dashboard pie still accounts for them.
const expenseFallbackBucket = "Outros"

// snapshot is one projected view of the ledger. It is immutable once
// built; a new revision replaces it wholesale.
type snapshot struct {
	revision int64
	ref      core.Reference
	events   []projection.Event
	failures []projection.Failure
	txCount  int
}

// ReportService runs the projection pipeline and memoizes its outputs.
// Writes bump a revision counter; cached entries are keyed by revision so
// a stale entry can never be served after an invalidation.
type ReportService struct {
	source ReportSource
	now    func() time.Time

	revision atomic.Int64

	mu   sync.Mutex
	snap *snapshot

	reportCache  *cache.LRU[report.Report]
	balanceCache *cache.LRU[[]report.AccountBalanceEntry]
}

func NewReportService(source ReportSource, size int, ttl time.Duration, manager *cache.Manager) *ReportService {
	s := &ReportService{
		source:       source,
		now:          time.Now,
		reportCache:  cache.NewLRU[report.Report](size, ttl),
		balanceCache: cache.NewLRU[[]report.AccountBalanceEntry](size, ttl),
	}
	if manager != nil {
		manager.Register(s.reportCache)
		manager.Register(s.balanceCache)
	}
	return s
}

// WithClock overrides the time source used to resolve "current month".
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// Invalidate marks every cached projection stale. Called after each write.
func (s *ReportService) Invalidate() {
	s.revision.Add(1)
	s.reportCache.Purge()
	s.balanceCache.Purge()
}

// currentSnapshot returns the projected snapshot for the current revision,
// rebuilding it when a write has happened since the last build.
func (s *ReportService) currentSnapshot(ctx context.Context) (*snapshot, error) {
	rev := s.revision.Load()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap != nil && s.snap.revision == rev {
		return s.snap, nil
	}

	start := time.Now()
	txs, err := s.source.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	ref, err := s.source.ListReference(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reference: %w", err)
	}

	events, failures := projection.ProjectAll(txs, ref.PaymentMethods)
	for _, f := range failures {
		slog.WarnContext(ctx, "Transaction skipped during projection",
			"transaction_id", f.TransactionID, "error", f.Err)
	}

	s.snap = &snapshot{
		revision: rev,
		ref:      ref,
		events:   events,
		failures: failures,
		txCount:  len(txs),
	}

	slog.InfoContext(ctx, "Projection snapshot rebuilt",
		"revision", rev,
		"transactions", len(txs),
		"events", len(events),
		"skipped", len(failures),
		"duration_ms", time.Since(start).Milliseconds())

	return s.snap, nil
}

// MonthlyReport builds (or serves from cache) the income statement for the
// given month.
func (s *ReportService) MonthlyReport(ctx context.Context, month, year int) (report.Report, error) {
	if month < 1 || month > 12 {
		return report.Report{}, fmt.Errorf("invalid month: %d", month)
	}
	key := fmt.Sprintf("dre:%d:%04d-%02d", s.revision.Load(), year, month)
	if r, ok := s.reportCache.Get(key); ok {
		return r, nil
	}

	snap, err := s.currentSnapshot(ctx)
	if err != nil {
		return report.Report{}, err
	}
	r := report.BuildPeriodReport(snap.events, snap.ref.Categories, snap.ref.PaymentMethods, month, year)
	s.reportCache.Set(key, r)
	return r, nil
}

// Balances returns the projected balance of every account as of the given
// date (inclusive).
func (s *ReportService) Balances(ctx context.Context, asOf core.Date) ([]report.AccountBalanceEntry, error) {
	if err := asOf.Validate(); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("bal:%d:%s", s.revision.Load(), asOf)
	if b, ok := s.balanceCache.Get(key); ok {
		return b, nil
	}

	snap, err := s.currentSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	b := report.AccountBalances(snap.ref.Accounts, snap.events, asOf)
	s.balanceCache.Set(key, b)
	return b, nil
}

// Dashboard assembles the current-month summary.
func (s *ReportService) Dashboard(ctx context.Context) (DashboardSummary, error) {
	now := s.now()
	month, year := int(now.Month()), now.Year()

	r, err := s.MonthlyReport(ctx, month, year)
	if err != nil {
		return DashboardSummary{}, err
	}
	asOf := core.NewDate(year, month, now.Day())
	balances, err := s.Balances(ctx, asOf)
	if err != nil {
		return DashboardSummary{}, err
	}

	snap, err := s.currentSnapshot(ctx)
	if err != nil {
		return DashboardSummary{}, err
	}
	var skipped []string
	for _, f := range snap.failures {
		skipped = append(skipped, f.TransactionID)
	}

	var monthExpenses []projection.Event
	for _, ev := range snap.events {
		if ev.Tx.Kind == core.Expense && ev.Date.SameMonth(month, year) {
			monthExpenses = append(monthExpenses, ev)
		}
	}

	return DashboardSummary{
		Month:            month,
		Year:             year,
		Report:           r,
		Balances:         balances,
		ExpenseBreakdown: report.TotalsByCategoryWithFallback(monthExpenses, snap.ref.Categories, expenseFallbackBucket),
		SkippedTxIDs:     skipped,
		TransactionCount: snap.txCount,
	}, nil
}

// Trend returns consecutive monthly reports starting at the given month.
func (s *ReportService) Trend(ctx context.Context, month, year, months int) ([]report.Report, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month: %d", month)
	}
	if months < 1 || months > 60 {
		return nil, fmt.Errorf("invalid trend length: %d", months)
	}

	out := make([]report.Report, 0, months)
	m, y := month, year
	for i := 0; i < months; i++ {
		r, err := s.MonthlyReport(ctx, m, y)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return out, nil
}

// Reference exposes the loaded reference tables for handlers that need
// them (category and method listings).
func (s *ReportService) Reference(ctx context.Context) (core.Reference, error) {
	snap, err := s.currentSnapshot(ctx)
	if err != nil {
		return core.Reference{}, err
	}
	return snap.ref, nil
}
