package backend

import (
	"fmt"
	"log/slog"

	"khata/internal/amqp"
	"khata/internal/ledger"
	"khata/internal/ledger/memory"
	"khata/internal/storage"
)

// Result is a wired backend: the store, the optional sync queue client,
// and a cleanup to run on shutdown.
type Result struct {
	Store   ledger.Store
	Events  *amqp.Client
	Cleanup func() error
}

// CreateStore builds the backend the config asks for. A broken AMQP
// connection degrades the sqlite backend to store-only instead of
// failing startup.
func CreateStore(cfg Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SQLiteBackend:
		return createSQLite(cfg, logger)
	case MemoryBackend:
		return createMemory(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func createSQLite(cfg Config, logger *slog.Logger) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite repository: %w", err)
	}

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
			events = nil
		} else {
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	return &Result{
		Store:  repo,
		Events: events,
		Cleanup: func() error {
			if events != nil {
				events.Close()
			}
			return repo.Close()
		},
	}, nil
}

func createMemory(cfg Config, logger *slog.Logger) (*Result, error) {
	dir := cfg.DataDirectory
	if dir == "" {
		dir = "."
	}
	store, err := memory.NewFromFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("initialize memory store: %w", err)
	}
	logger.Info("Initialized in-memory store", "data_dir", dir)

	return &Result{
		Store:   store,
		Cleanup: func() error { return nil },
	}, nil
}
