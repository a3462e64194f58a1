// fluxo-report prints the monthly income statement (DRE) and the projected
// account balances to stdout. Useful for closing a month without the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fluxo/internal/backend"
	"fluxo/internal/cli"
	"fluxo/internal/core"
	applog "fluxo/internal/log"
	"fluxo/internal/report"
	"fluxo/internal/services"
)

func main() {
	now := time.Now().UTC()
	month := flag.Int("month", int(now.Month()), "report month (1-12)")
	year := flag.Int("year", now.Year(), "report year")
	trend := flag.Int("trend", 0, "also print N months of net profit starting at the report month")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentReport)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "type", backendCfg.Type)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
	}()

	reports := services.NewReportService(result.Backend, cfg.ReportCacheSize, cfg.ReportCacheTTL, nil)
	ctx := context.Background()

	rep, err := reports.MonthlyReport(ctx, *month, *year)
	if err != nil {
		logger.Error("Failed to build report", "error", err)
		os.Exit(1)
	}
	printReport(rep)

	asOf := core.NewDate(*year, *month, 1).AddMonths(1).AddDays(-1)
	balances, err := reports.Balances(ctx, asOf)
	if err != nil {
		logger.Error("Failed to compute balances", "error", err)
		os.Exit(1)
	}
	printBalances(balances, asOf)

	if *trend > 0 {
		trendReports, err := reports.Trend(ctx, *month, *year, *trend)
		if err != nil {
			logger.Error("Failed to build trend", "error", err)
			os.Exit(1)
		}
		printTrend(trendReports)
	}
}

func printReport(r report.Report) {
	fmt.Printf("DRE %02d/%d\n", r.Month, r.Year)
	fmt.Printf("  Receita Bruta         %12s\n", r.GrossRevenue)
	for _, c := range r.IncomeByCategory {
		fmt.Printf("    %-20s%12s\n", c.Name, c.Total)
	}
	fmt.Printf("  Taxas de Pagamento    %12s\n", r.TotalFees)
	for _, f := range r.FeesByMethod {
		fmt.Printf("    %-20s%12s\n", f.Name, f.Total)
	}
	fmt.Printf("  Comissões             %12s\n", r.TotalCommissions)
	fmt.Printf("  Receita Líquida       %12s\n", r.NetRevenue)
	fmt.Printf("  Despesas              %12s\n", r.TotalExpenses)
	for _, c := range r.ExpensesByCategory {
		fmt.Printf("    %-20s%12s\n", c.Name, c.Total)
	}
	fmt.Printf("  Lucro Líquido         %12s\n", r.NetProfit)
	fmt.Printf("  Margem                %11.1f%%\n", r.MarginPct)
}

func printBalances(balances []report.AccountBalanceEntry, asOf core.Date) {
	fmt.Printf("\nSaldos projetados em %s\n", asOf)
	for _, b := range balances {
		fmt.Printf("  %-22s%12s\n", b.Name, b.Balance)
	}
}

func printTrend(reports []report.Report) {
	fmt.Printf("\nTendência de lucro\n")
	for _, r := range reports {
		fmt.Printf("  %02d/%d  %12s\n", r.Month, r.Year, r.NetProfit)
	}
}
