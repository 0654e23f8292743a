// khata-export dumps every family ledger to disk: one CSV and one
// backup JSON per family.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"khata/internal/config"
	"khata/internal/core"
	"khata/internal/export"
	"khata/internal/log"
	"khata/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentExport})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	if err := os.MkdirAll(cfg.ExportDir, 0755); err != nil {
		logger.Error("Failed to create export directory", "error", err, "dir", cfg.ExportDir)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	families, err := repo.ListFamilies(ctx)
	if err != nil {
		logger.Error("Failed to list families", "error", err)
		os.Exit(1)
	}
	if len(families) == 0 {
		logger.Info("No families to export")
		return
	}
	logger.Info("Exporting families", "count", len(families), "dir", cfg.ExportDir)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, family := range families {
		g.Go(func() error {
			return exportFamily(ctx, repo, cfg.ExportDir, family)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Export failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Export completed", "count", len(families))
}

func exportFamily(ctx context.Context, repo *storage.SQLiteRepository, dir, family string) error {
	txs, err := repo.ListTransactions(ctx, family)
	if err != nil {
		return fmt.Errorf("list transactions for %s: %w", family, err)
	}

	csvPath := filepath.Join(dir, "transactions_"+family+".csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", csvPath, err)
	}
	if err := export.WriteCSV(f, core.TransactionColumns, core.TransactionRows(txs)); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", csvPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", csvPath, err)
	}

	backup, err := export.MarshalBackup(txs)
	if err != nil {
		return fmt.Errorf("marshal backup for %s: %w", family, err)
	}
	backupPath := filepath.Join(dir, "backup_"+family+".json")
	if err := os.WriteFile(backupPath, backup, 0644); err != nil {
		return fmt.Errorf("write %s: %w", backupPath, err)
	}

	log.Info("Exported family ledger",
		log.FieldFamily, family,
		log.FieldCount, len(txs),
		"csv", csvPath,
		"backup", backupPath)
	return nil
}
