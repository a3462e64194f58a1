package services

import (
	"context"
	"testing"
	"time"

	"fluxo/internal/core"
)

func TestTransactionServiceCreateAssignsID(t *testing.T) {
	store := seededStore(t)
	reports := NewReportService(store, 16, time.Minute, nil)
	svc := NewTransactionService(store, store, nil, reports)
	ctx := context.Background()

	tx, err := svc.CreateTransaction(ctx, core.Transaction{
		Kind: core.Expense, Amount: core.Money{Cents: 4200},
		Date: core.NewDate(2024, 2, 2), AccountID: "caixa", CategoryID: "limpeza",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.ID == "" {
		t.Fatal("expected generated ID")
	}

	txs, _ := store.ListTransactions(ctx)
	if len(txs) != 1 || txs[0].ID != tx.ID {
		t.Errorf("stored = %v", txs)
	}
}

func TestTransactionServiceCreateRejectsInvalid(t *testing.T) {
	store := seededStore(t)
	svc := NewTransactionService(store, store, nil, nil)
	_, err := svc.CreateTransaction(context.Background(), core.Transaction{Kind: core.Income})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestTransactionServiceWriteInvalidatesReports(t *testing.T) {
	store := seededStore(t)
	reports := NewReportService(store, 16, time.Minute, nil)
	svc := NewTransactionService(store, store, nil, reports)
	ctx := context.Background()

	// Warm the cache with an empty month.
	r, err := reports.MonthlyReport(ctx, 4, 2024)
	if err != nil || r.GrossRevenue.Cents != 0 {
		t.Fatalf("warmup = %+v, %v", r, err)
	}

	created, err := svc.CreateTransaction(ctx, core.Transaction{
		Kind: core.Income, Amount: core.Money{Cents: 7700},
		Date: core.NewDate(2024, 4, 10), AccountID: "stone", CategoryID: "uh1",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	r, _ = reports.MonthlyReport(ctx, 4, 2024)
	if r.GrossRevenue.Cents != 7700 {
		t.Errorf("gross after create = %d, want 7700", r.GrossRevenue.Cents)
	}

	if err := svc.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	r, _ = reports.MonthlyReport(ctx, 4, 2024)
	if r.GrossRevenue.Cents != 0 {
		t.Errorf("gross after delete = %d, want 0", r.GrossRevenue.Cents)
	}
}

func TestTransactionServiceDeleteMissing(t *testing.T) {
	store := seededStore(t)
	svc := NewTransactionService(store, store, nil, nil)
	if err := svc.DeleteTransaction(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error deleting missing transaction")
	}
}
