// Package memory is an in-process Store for development and tests. State
// lives in maps guarded by a mutex and is lost on shutdown.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"khata/internal/core"
	"khata/internal/log"
)

type Store struct {
	mu           sync.RWMutex
	transactions map[string][]core.Transaction
	categories   map[string][]core.Category
}

func New() *Store {
	return &Store{
		transactions: make(map[string][]core.Transaction),
		categories:   make(map[string][]core.Category),
	}
}

// NewFromFiles builds a Store pre-seeded from JSON files under base:
// data/seed_transactions.json (an array of raw records in the backup
// format, loaded into the "demo" family) and data/seed_categories.json.
// Missing files are fine; malformed records are skipped with a log line.
func NewFromFiles(base string) (*Store, error) {
	s := New()

	txPath := filepath.Join(base, "data", "seed_transactions.json")
	if data, err := os.ReadFile(txPath); err == nil {
		var raws []core.RawRecord
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("parse %s: %w", txPath, err)
		}
		res := core.NormalizeAll(raws)
		for _, re := range res.Errors {
			log.Warn("skipping seed transaction",
				log.FieldComponent, log.ComponentLedger,
				"index", re.Index,
				log.FieldError, re.Reason)
		}
		for _, tx := range res.Valid {
			if _, err := s.Append(context.Background(), "demo", tx); err != nil {
				return nil, err
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", txPath, err)
	}

	catPath := filepath.Join(base, "data", "seed_categories.json")
	if data, err := os.ReadFile(catPath); err == nil {
		var cats []core.Category
		if err := json.Unmarshal(data, &cats); err != nil {
			return nil, fmt.Errorf("parse %s: %w", catPath, err)
		}
		for _, cat := range cats {
			if err := s.SaveCategory(context.Background(), "demo", cat); err != nil {
				log.Warn("skipping seed category",
					log.FieldComponent, log.ComponentLedger,
					log.FieldCategory, cat.Name,
					log.FieldError, err)
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", catPath, err)
	}

	return s, nil
}

func (s *Store) Append(ctx context.Context, family string, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[family] = append(s.transactions[family], tx)
	return tx.ID, nil
}

func (s *Store) ListTransactions(ctx context.Context, family string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs := s.transactions[family]
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	return out, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, family string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := s.transactions[family]
	for i := range txs {
		if txs[i].ID == tx.ID {
			txs[i] = tx
			return nil
		}
	}
	return fmt.Errorf("transaction %s not found in family %s", tx.ID, family)
}

func (s *Store) DeleteTransaction(ctx context.Context, family, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := s.transactions[family]
	for i, tx := range txs {
		if tx.ID == id {
			s.transactions[family] = append(txs[:i:i], txs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s not found in family %s", id, family)
}

func (s *Store) ListCategories(ctx context.Context, family string) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cats := s.categories[family]
	out := make([]core.Category, len(cats))
	copy(out, cats)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) SaveCategory(ctx context.Context, family string, cat core.Category) error {
	if err := cat.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cats := s.categories[family]
	for i, existing := range cats {
		if existing.Name == cat.Name && existing.Type == cat.Type {
			cats[i] = cat
			return nil
		}
	}
	s.categories[family] = append(cats, cat)
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, family, name string, txType core.TxType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cats := s.categories[family]
	for i, cat := range cats {
		if cat.Name == name && cat.Type == txType {
			s.categories[family] = append(cats[:i:i], cats[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("category %s/%s not found in family %s", txType, name, family)
}

func (s *Store) ListFamilies(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for f := range s.transactions {
		seen[f] = struct{}{}
	}
	for f := range s.categories {
		seen[f] = struct{}{}
	}
	families := make([]string, 0, len(seen))
	for f := range seen {
		families = append(families, f)
	}
	sort.Strings(families)
	return families, nil
}
