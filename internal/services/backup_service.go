package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"khata/internal/core"
	"khata/internal/export"
	"khata/internal/ledger"
)

// BackupService snapshots and restores whole family ledgers in the
// backup JSON format.
type BackupService struct {
	store ledger.Store
}

func NewBackupService(store ledger.Store) *BackupService {
	return &BackupService{store: store}
}

// Snapshot serializes the full ledger of one family.
func (s *BackupService) Snapshot(ctx context.Context, family string) ([]byte, error) {
	txs, err := s.store.ListTransactions(ctx, family)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return export.MarshalBackup(txs)
}

// SkippedRecord reports one backup entry Restore could not take.
type SkippedRecord struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// RestoreReport summarizes a restore: how many records went in and which
// were skipped.
type RestoreReport struct {
	Restored int             `json:"restored"`
	Skipped  []SkippedRecord `json:"skipped,omitempty"`
}

// Restore inserts the records of a backup file into a family ledger.
// Every record gets a fresh id, so restoring into a non-empty ledger
// duplicates rather than overwrites. Bad records are skipped and
// reported, good ones still go in.
func (s *BackupService) Restore(ctx context.Context, family string, data []byte) (RestoreReport, error) {
	raws, err := export.ParseBackup(data)
	if err != nil {
		return RestoreReport{}, err
	}

	res := core.NormalizeAll(raws)
	report := RestoreReport{}
	for _, re := range res.Errors {
		report.Skipped = append(report.Skipped, SkippedRecord{Index: re.Index, Reason: re.Reason.Error()})
	}

	for _, tx := range res.Valid {
		tx.ID = uuid.NewString()
		if _, err := s.store.Append(ctx, family, tx); err != nil {
			return report, fmt.Errorf("restore transaction: %w", err)
		}
		report.Restored++
	}

	slog.InfoContext(ctx, "Restored backup",
		"family", family,
		"restored", report.Restored,
		"skipped", len(report.Skipped))

	return report, nil
}
