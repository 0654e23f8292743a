package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"khata/internal/amqp"
	"khata/internal/core"
	"khata/internal/storage"
)

type fakeSheets struct {
	appended []string
	fail     bool
}

func (f *fakeSheets) AppendTransaction(ctx context.Context, family string, tx core.Transaction) (string, error) {
	if f.fail {
		return "", errors.New("sheets unavailable")
	}
	f.appended = append(f.appended, family+"/"+tx.ID)
	return "ref-1", nil
}

func newWorkerRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "khata.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTx(t *testing.T, repo *storage.SQLiteRepository, family string) string {
	t.Helper()
	id, err := repo.Append(context.Background(), family, core.Transaction{
		Type:       core.Expense,
		Amount:     core.Money{Cents: 450},
		Category:   "Food",
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return id
}

func TestHandleUpsertEvent(t *testing.T) {
	repo := newWorkerRepo(t)
	sheets := &fakeSheets{}
	w := NewSyncWorker(repo, sheets, 10)
	ctx := context.Background()

	id := seedTx(t, repo, "fam")
	if err := w.HandleEvent(ctx, amqp.NewUpsertEvent("fam", id)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sheets.appended) != 1 || sheets.appended[0] != "fam/"+id {
		t.Fatalf("unexpected appends: %v", sheets.appended)
	}

	pending, _ := repo.PendingSyncTransactions(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("row should be marked synced: %+v", pending)
	}
}

func TestHandleUpsertSheetsFailure(t *testing.T) {
	repo := newWorkerRepo(t)
	w := NewSyncWorker(repo, &fakeSheets{fail: true}, 10)
	ctx := context.Background()

	id := seedTx(t, repo, "fam")
	if err := w.HandleEvent(ctx, amqp.NewUpsertEvent("fam", id)); err == nil {
		t.Fatal("expected error from failing sheets")
	}

	// Row stays pending for the next scan.
	pending, _ := repo.PendingSyncTransactions(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("row should stay pending: %+v", pending)
	}
}

func TestHandleDeleteAndUnknownEvents(t *testing.T) {
	w := NewSyncWorker(newWorkerRepo(t), &fakeSheets{}, 10)
	ctx := context.Background()

	if err := w.HandleEvent(ctx, amqp.NewDeleteEvent("fam", "t1")); err != nil {
		t.Fatalf("delete events must be acknowledged: %v", err)
	}
	if err := w.HandleEvent(ctx, &amqp.TransactionEvent{Kind: "bogus"}); err != nil {
		t.Fatalf("unknown events must be dropped, not requeued: %v", err)
	}
}

func TestProcessPending(t *testing.T) {
	repo := newWorkerRepo(t)
	sheets := &fakeSheets{}
	w := NewSyncWorker(repo, sheets, 10)
	ctx := context.Background()

	seedTx(t, repo, "fam1")
	seedTx(t, repo, "fam2")

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(sheets.appended) != 2 {
		t.Fatalf("expected 2 appends, got %v", sheets.appended)
	}

	// Nothing left to do on the second pass.
	sheets.appended = nil
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(sheets.appended) != 0 {
		t.Fatalf("expected no appends, got %v", sheets.appended)
	}
}
