// Package ledger defines the storage ports the rest of the application
// programs against. Backends (sqlite, memory) implement Store; callers
// depend on the narrowest interface that covers what they do.
package ledger

import (
	"context"

	"khata/internal/core"
)

// TransactionWriter appends one transaction to a family ledger and returns
// the id it was stored under (the given one, or a generated one when empty).
type TransactionWriter interface {
	Append(ctx context.Context, family string, tx core.Transaction) (string, error)
}

// TransactionLister returns the full snapshot of a family ledger. Filtering
// and aggregation happen in core, on the caller's side.
type TransactionLister interface {
	ListTransactions(ctx context.Context, family string) ([]core.Transaction, error)
}

// TransactionUpdater replaces the stored fields of an existing
// transaction, keyed by tx.ID.
type TransactionUpdater interface {
	UpdateTransaction(ctx context.Context, family string, tx core.Transaction) error
}

// TransactionDeleter removes one transaction from a family ledger.
type TransactionDeleter interface {
	DeleteTransaction(ctx context.Context, family, id string) error
}

// CategoryReader lists the categories a family has defined.
type CategoryReader interface {
	ListCategories(ctx context.Context, family string) ([]core.Category, error)
}

// CategoryWriter creates or updates categories. A category is keyed by
// (name, type) within a family.
type CategoryWriter interface {
	SaveCategory(ctx context.Context, family string, cat core.Category) error
	DeleteCategory(ctx context.Context, family, name string, txType core.TxType) error
}

// FamilyLister enumerates every family known to the backend. Export tooling
// uses it to walk all ledgers.
type FamilyLister interface {
	ListFamilies(ctx context.Context) ([]string, error)
}

// Store is the full backend surface.
type Store interface {
	TransactionWriter
	TransactionLister
	TransactionUpdater
	TransactionDeleter
	CategoryReader
	CategoryWriter
	FamilyLister
}
