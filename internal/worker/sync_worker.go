// Package worker pushes stored transactions to the backup spreadsheet.
// It is driven by queue events and by a periodic scan of rows the queue
// missed.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"khata/internal/amqp"
	"khata/internal/core"
	"khata/internal/storage"
)

// SheetAppender is the slice of the spreadsheet client the worker needs.
type SheetAppender interface {
	AppendTransaction(ctx context.Context, family string, tx core.Transaction) (string, error)
}

// SyncWorker mirrors sqlite rows to the backup spreadsheet.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	sheets    SheetAppender
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, sheets SheetAppender, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleEvent processes one queue event. Upserts push the row to the
// spreadsheet; deletes are acknowledged but not propagated, the
// spreadsheet is an append-only audit trail.
func (w *SyncWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	switch event.Kind {
	case amqp.KindUpsert:
		return w.syncTransaction(ctx, event.Family, event.ID)
	case amqp.KindDelete:
		slog.InfoContext(ctx, "Delete event acknowledged, spreadsheet keeps the row",
			"family", event.Family, "id", event.ID)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown event kind, dropping",
			"kind", event.Kind, "family", event.Family, "id", event.ID)
		return nil
	}
}

func (w *SyncWorker) syncTransaction(ctx context.Context, family, id string) error {
	tx, err := w.storage.GetTransaction(ctx, family, id)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.sheets.AppendTransaction(ctx, family, tx)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, family, id, err); markErr != nil {
			slog.ErrorContext(ctx, "Failed to record sync error",
				"family", family, "id", id, "error", markErr)
		}
		return fmt.Errorf("append transaction to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, family, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction synced to sheets",
		"family", family, "id", id, "sheets_ref", ref)
	return nil
}

// ProcessPending pushes rows the queue never delivered. Backup path for
// lost messages; runs on a timer in the worker binary.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	var failed int
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.syncTransaction(ctx, p.Family, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending transaction",
				"family", p.Family, "id", p.ID, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pending transactions failed", failed, len(pending))
	}
	return nil
}
