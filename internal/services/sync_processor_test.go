package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fluxo/internal/core"
	"fluxo/internal/storage"
)

type fakeWriter struct {
	mu       sync.Mutex
	appended []string
	failIDs  map[string]bool
	failN    map[string]int
}

func (w *fakeWriter) Append(_ context.Context, tx core.Transaction) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failN[tx.ID] > 0 {
		w.failN[tx.ID]--
		return "", errors.New("sheet unavailable")
	}
	if w.failIDs[tx.ID] {
		return "", errors.New("sheet unavailable")
	}
	w.appended = append(w.appended, tx.ID)
	return "sheet:" + tx.ID, nil
}

func syncTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fluxo.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSyncProcessorProcessBatch(t *testing.T) {
	repo := syncTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"tx-ok", "tx-bad"} {
		_, err := repo.Append(ctx, core.Transaction{
			ID: id, Kind: core.Income, Amount: core.Money{Cents: 100},
			Date: core.NewDate(2024, 1, 1), AccountID: "stone", CategoryID: "uh1",
		})
		if err != nil {
			t.Fatalf("Append(%s): %v", id, err)
		}
	}

	writer := &fakeWriter{failIDs: map[string]bool{"tx-bad": true}}
	p := NewSyncProcessor(repo, writer, DefaultSyncProcessorConfig())
	p.stopCh = make(chan struct{})

	if n := p.ProcessBatch(ctx); n != 1 {
		t.Errorf("ProcessBatch() = %d, want 1", n)
	}
	if len(writer.appended) != 1 || writer.appended[0] != "tx-ok" {
		t.Errorf("appended = %v", writer.appended)
	}

	// The failed row stays pending for the next poll, with the attempt
	// counted.
	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "tx-bad" || pending[0].Attempts != 1 {
		t.Errorf("pending after batch = %+v, want tx-bad with 1 attempt", pending)
	}
}

func TestSyncProcessorRetriesTransientFailure(t *testing.T) {
	repo := syncTestRepo(t)
	ctx := context.Background()

	_, err := repo.Append(ctx, core.Transaction{
		ID: "tx-1", Kind: core.Income, Amount: core.Money{Cents: 100},
		Date: core.NewDate(2024, 1, 1), AccountID: "stone", CategoryID: "uh1",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	// The sheet rejects the first push and accepts the second.
	writer := &fakeWriter{failN: map[string]int{"tx-1": 1}}
	p := NewSyncProcessor(repo, writer, DefaultSyncProcessorConfig())
	p.stopCh = make(chan struct{})

	if n := p.ProcessBatch(ctx); n != 0 {
		t.Errorf("first ProcessBatch() = %d, want 0", n)
	}
	if n := p.ProcessBatch(ctx); n != 1 {
		t.Errorf("second ProcessBatch() = %d, want 1", n)
	}
	if len(writer.appended) != 1 || writer.appended[0] != "tx-1" {
		t.Errorf("appended = %v", writer.appended)
	}

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after recovery = %v", pending)
	}
}

func TestSyncProcessorParksRowAfterMaxRetries(t *testing.T) {
	repo := syncTestRepo(t)
	ctx := context.Background()

	_, err := repo.Append(ctx, core.Transaction{
		ID: "tx-stuck", Kind: core.Income, Amount: core.Money{Cents: 100},
		Date: core.NewDate(2024, 1, 1), AccountID: "stone", CategoryID: "uh1",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	writer := &fakeWriter{failIDs: map[string]bool{"tx-stuck": true}}
	cfg := DefaultSyncProcessorConfig()
	cfg.MaxRetries = 2
	p := NewSyncProcessor(repo, writer, cfg)
	p.stopCh = make(chan struct{})

	p.ProcessBatch(ctx)
	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending after first failure = %+v, want the row still queued", pending)
	}

	// Second failure reaches the cap; the row is parked in the error
	// state and never polled again.
	p.ProcessBatch(ctx)
	pending, err = repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after cap = %v, want none", pending)
	}
}

func TestSyncProcessorStartStop(t *testing.T) {
	repo := syncTestRepo(t)
	writer := &fakeWriter{}
	cfg := DefaultSyncProcessorConfig()
	cfg.PollInterval = 10 * time.Millisecond

	p := NewSyncProcessor(repo, writer, cfg)
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("expected error on double start")
	}
	if !p.IsRunning() {
		t.Error("expected processor to be running")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.IsRunning() {
		t.Error("expected processor to be stopped")
	}
}
