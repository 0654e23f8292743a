// Package storage is the sqlite backend. Deletes are soft so the sync
// worker can still resolve ids from queue messages that arrive late.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"khata/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements ledger.TransactionWriter.
func (r *SQLiteRepository) Append(ctx context.Context, family string, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, family_id, tx_type, amount_cents, category, description, occurred_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, family, string(tx.Type), tx.Amount.Cents, tx.Category, tx.Description,
		tx.OccurredAt.UTC().UnixMilli(), tx.Owner)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"family", family,
		"tx_type", tx.Type,
		"amount_cents", tx.Amount.Cents)

	return tx.ID, nil
}

// ListTransactions implements ledger.TransactionLister. Soft-deleted rows
// are excluded.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, family string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tx_type, amount_cents, category, description, occurred_at, created_by
		FROM transactions
		WHERE family_id = ? AND deleted_at IS NULL
		ORDER BY occurred_at, id`, family)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			tx         core.Transaction
			txType     string
			occurredAt int64
		)
		if err := rows.Scan(&tx.ID, &txType, &tx.Amount.Cents, &tx.Category, &tx.Description, &occurredAt, &tx.Owner); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = core.TxType(txType)
		tx.OccurredAt = time.UnixMilli(occurredAt).UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// GetTransaction resolves one row by id, soft-deleted ones included. The
// sync worker needs deleted rows to report on stale queue messages.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, family, id string) (core.Transaction, error) {
	var (
		tx         core.Transaction
		txType     string
		occurredAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tx_type, amount_cents, category, description, occurred_at, created_by
		FROM transactions
		WHERE family_id = ? AND id = ?`, family, id).
		Scan(&tx.ID, &txType, &tx.Amount.Cents, &tx.Category, &tx.Description, &occurredAt, &tx.Owner)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	tx.Type = core.TxType(txType)
	tx.OccurredAt = time.UnixMilli(occurredAt).UTC()
	return tx, nil
}

// UpdateTransaction implements ledger.TransactionUpdater. Sync state is
// cleared so the worker appends the edited version to the backup sheet.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, family string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET tx_type = ?, amount_cents = ?, category = ?, description = ?, occurred_at = ?,
		    synced_at = NULL, sync_error = NULL
		WHERE family_id = ? AND id = ? AND deleted_at IS NULL`,
		string(tx.Type), tx.Amount.Cents, tx.Category, tx.Description,
		tx.OccurredAt.UTC().UnixMilli(), family, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s not found in family %s", tx.ID, family)
	}

	slog.InfoContext(ctx, "Transaction updated in SQLite",
		"id", tx.ID,
		"family", family,
		"tx_type", tx.Type,
		"amount_cents", tx.Amount.Cents)
	return nil
}

// DeleteTransaction implements ledger.TransactionDeleter with a soft delete.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, family, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET deleted_at = CURRENT_TIMESTAMP
		WHERE family_id = ? AND id = ? AND deleted_at IS NULL`, family, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s not found in family %s", id, family)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, family string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, tx_type, color, icon, created_by
		FROM categories
		WHERE family_id = ?
		ORDER BY tx_type, name`, family)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var (
			cat    core.Category
			txType string
		)
		if err := rows.Scan(&cat.Name, &txType, &cat.Color, &cat.Icon, &cat.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cat.Type = core.TxType(txType)
		cats = append(cats, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (r *SQLiteRepository) SaveCategory(ctx context.Context, family string, cat core.Category) error {
	if err := cat.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (family_id, name, tx_type, color, icon, created_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (family_id, name, tx_type)
		DO UPDATE SET color = excluded.color, icon = excluded.icon`,
		family, cat.Name, string(cat.Type), cat.Color, cat.Icon, cat.CreatedBy)
	if err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, family, name string, txType core.TxType) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM categories WHERE family_id = ? AND name = ? AND tx_type = ?`,
		family, name, string(txType))
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %s/%s not found in family %s", txType, name, family)
	}
	return nil
}

func (r *SQLiteRepository) ListFamilies(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT family_id FROM transactions WHERE deleted_at IS NULL
		UNION
		SELECT family_id FROM categories
		ORDER BY family_id`)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	return families, nil
}

// PendingSync holds what the worker needs to push one row to the backup
// spreadsheet.
type PendingSync struct {
	Family string
	ID     string
}

// PendingSyncTransactions returns up to limit rows never synced, oldest
// first.
func (r *SQLiteRepository) PendingSyncTransactions(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT family_id, id FROM transactions
		WHERE synced_at IS NULL AND deleted_at IS NULL
		ORDER BY created_at
		LIMIT ?`, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var pending []PendingSync
	for rows.Next() {
		var p PendingSync
		if err := rows.Scan(&p.Family, &p.ID); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	return pending, nil
}

// MarkSynced records a successful push and clears any previous error.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, family, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET synced_at = CURRENT_TIMESTAMP, sync_error = NULL
		WHERE family_id = ? AND id = ?`, family, id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id, "family", family)
	return nil
}

// MarkSyncError records a failed push; the row stays pending.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, family, id string, syncErr error) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET sync_error = ?
		WHERE family_id = ? AND id = ?`, syncErr.Error(), family, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id, "family", family, "error", syncErr)
	return nil
}
