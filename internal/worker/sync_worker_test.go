package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fluxo/internal/amqp"
	"fluxo/internal/core"
	"fluxo/internal/storage"
)

type fakeSheet struct {
	appended []string
	deleted  []string
	failAll  bool
}

func (f *fakeSheet) Append(_ context.Context, tx core.Transaction) (string, error) {
	if f.failAll {
		return "", errors.New("sheet unavailable")
	}
	f.appended = append(f.appended, tx.ID)
	return "sheet:" + tx.ID, nil
}

func (f *fakeSheet) DeleteTransaction(_ context.Context, id string) error {
	if f.failAll {
		return errors.New("sheet unavailable")
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func workerRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fluxo.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func appendTx(t *testing.T, repo *storage.SQLiteRepository, id string) {
	t.Helper()
	_, err := repo.Append(context.Background(), core.Transaction{
		ID: id, Kind: core.Income, Amount: core.Money{Cents: 1000},
		Date: core.NewDate(2024, 1, 1), AccountID: "stone", CategoryID: "uh1",
	})
	if err != nil {
		t.Fatalf("Append(%s): %v", id, err)
	}
}

func TestHandleSyncMessageCreate(t *testing.T) {
	repo := workerRepo(t)
	sheet := &fakeSheet{}
	w := NewSyncWorker(repo, sheet, sheet, nil, 10)
	ctx := context.Background()

	appendTx(t, repo, "tx-1")

	msg := amqp.NewTransactionSyncMessage("tx-1", amqp.ActionCreate)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}
	if len(sheet.appended) != 1 || sheet.appended[0] != "tx-1" {
		t.Errorf("appended = %v", sheet.appended)
	}

	pending, _ := repo.GetPendingSyncTransactions(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("pending after sync = %v", pending)
	}
}

func TestHandleSyncMessageCreateVanished(t *testing.T) {
	repo := workerRepo(t)
	sheet := &fakeSheet{}
	w := NewSyncWorker(repo, sheet, sheet, nil, 10)

	// Row already deleted locally: message is acked, not requeued.
	msg := amqp.NewTransactionSyncMessage("ghost", amqp.ActionCreate)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}
	if len(sheet.appended) != 0 {
		t.Errorf("appended = %v", sheet.appended)
	}
}

func TestHandleSyncMessageAppendFailureMarksError(t *testing.T) {
	repo := workerRepo(t)
	sheet := &fakeSheet{failAll: true}
	w := NewSyncWorker(repo, sheet, sheet, nil, 10)
	ctx := context.Background()

	appendTx(t, repo, "tx-1")

	msg := amqp.NewTransactionSyncMessage("tx-1", amqp.ActionCreate)
	if err := w.HandleSyncMessage(ctx, msg); err == nil {
		t.Fatal("expected error when sheet append fails")
	}
	// The row left the pending queue and went to the error state.
	pending, _ := repo.GetPendingSyncTransactions(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("pending = %v, want none", pending)
	}
}

func TestHandleSyncMessageDelete(t *testing.T) {
	sheet := &fakeSheet{}
	w := NewSyncWorker(workerRepo(t), sheet, sheet, nil, 10)

	msg := amqp.NewTransactionSyncMessage("tx-9", amqp.ActionDelete)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}
	if len(sheet.deleted) != 1 || sheet.deleted[0] != "tx-9" {
		t.Errorf("deleted = %v", sheet.deleted)
	}
}

func TestHandleSyncMessageUnknownActionDropped(t *testing.T) {
	sheet := &fakeSheet{}
	w := NewSyncWorker(workerRepo(t), sheet, sheet, nil, 10)

	msg := amqp.NewTransactionSyncMessage("tx-1", "upsert")
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Errorf("unknown action should be dropped without error, got %v", err)
	}
}

func TestStartupSyncCheckDrainsBacklog(t *testing.T) {
	repo := workerRepo(t)
	sheet := &fakeSheet{}
	w := NewSyncWorker(repo, sheet, sheet, nil, 10)
	ctx := context.Background()

	for _, id := range []string{"tx-1", "tx-2", "tx-3"} {
		appendTx(t, repo, id)
	}

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if len(sheet.appended) != 3 {
		t.Errorf("appended = %v", sheet.appended)
	}
	pending, _ := repo.GetPendingSyncTransactions(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("pending after startup = %v", pending)
	}
}

type fakeRefSource struct {
	ref core.Reference
}

func (f *fakeRefSource) ListReference(_ context.Context) (core.Reference, error) {
	return f.ref, nil
}

func TestRefreshReference(t *testing.T) {
	repo := workerRepo(t)
	src := &fakeRefSource{ref: core.Reference{
		Categories: []core.Category{{ID: "uh1", Name: "Chalé UH 1", Group: core.GroupLodging}},
		Accounts:   []core.Account{{ID: "stone", Name: "Conta Stone"}},
		PaymentMethods: []core.PaymentMethod{
			{ID: "cartao", Name: "Cartão", FeePct: 3, CardSettlement: true},
		},
	}}
	w := NewSyncWorker(repo, &fakeSheet{}, nil, src, 10)
	ctx := context.Background()

	if err := w.RefreshReference(ctx); err != nil {
		t.Fatalf("RefreshReference: %v", err)
	}
	got, err := repo.ListReference(ctx)
	if err != nil {
		t.Fatalf("ListReference: %v", err)
	}
	if len(got.Categories) != 1 || len(got.Accounts) != 1 || len(got.PaymentMethods) != 1 {
		t.Errorf("reference = %+v", got)
	}
}
