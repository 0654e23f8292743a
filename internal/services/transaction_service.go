// Package services orchestrates ledger writes across the store and the
// sync queue.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"khata/internal/amqp"
	"khata/internal/core"
	"khata/internal/ledger"
)

// TransactionService stores transactions and publishes sync events. The
// store write is authoritative; a failed publish is logged and the
// request still succeeds, the worker's pending scan catches up later.
type TransactionService struct {
	store  ledger.Store
	events *amqp.Client
}

func NewTransactionService(store ledger.Store, events *amqp.Client) *TransactionService {
	return &TransactionService{
		store:  store,
		events: events,
	}
}

// Create saves a transaction and enqueues a sync event.
func (s *TransactionService) Create(ctx context.Context, family string, tx core.Transaction) (string, error) {
	id, err := s.store.Append(ctx, family, tx)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publishUpsert(ctx, family, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event",
			"family", family, "id", id, "error", err)
		// Transaction is saved locally, do not fail the request.
	}

	return id, nil
}

// Update rewrites a stored transaction and enqueues an upsert event; the
// worker appends the edited version to the backup sheet.
func (s *TransactionService) Update(ctx context.Context, family string, tx core.Transaction) error {
	if err := s.store.UpdateTransaction(ctx, family, tx); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	if err := s.publishUpsert(ctx, family, tx.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event",
			"family", family, "id", tx.ID, "error", err)
	}

	return nil
}

// Delete removes a transaction and enqueues a delete event.
func (s *TransactionService) Delete(ctx context.Context, family, id string) error {
	if err := s.store.DeleteTransaction(ctx, family, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.publishDelete(ctx, family, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete event",
			"family", family, "id", id, "error", err)
	}

	return nil
}

func (s *TransactionService) publishUpsert(ctx context.Context, family, id string) error {
	if s.events == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync event")
		return nil
	}
	return s.events.PublishTransactionUpsert(ctx, family, id)
}

func (s *TransactionService) publishDelete(ctx context.Context, family, id string) error {
	if s.events == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete event")
		return nil
	}
	return s.events.PublishTransactionDelete(ctx, family, id)
}

// Close closes the AMQP connection. The store is owned by the backend
// factory and closed there.
func (s *TransactionService) Close() error {
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			return fmt.Errorf("close amqp: %w", err)
		}
	}
	return nil
}
