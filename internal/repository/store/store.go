// Package store persists the three ledger collections as JSON blobs on top of
// a pluggable key-value backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/domain/models"
)

const (
	ProductsKey     = "products"
	InventoryKey    = "inventory"
	TransactionsKey = "transactionLogs"
)

// ErrCorruptCollection is returned when a stored blob is not valid JSON.
var ErrCorruptCollection = errors.New("corrupt collection")

// KVStore is the backend contract. SetMany must apply every pair or none.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, values map[string]string) error
	Close(ctx context.Context) error
}

// State is a full or partial copy of the ledger collections. Nil slices are
// left untouched by Commit.
type State struct {
	Products     []models.Product
	Inventory    []models.InventoryBatch
	Transactions []models.TransactionLog
}

// Store reads and writes whole collections. There are no partial updates.
type Store struct {
	kv     KVStore
	logger *zap.Logger
}

// New wraps a backend.
func New(kv KVStore, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, logger: logger}
}

// Products returns the catalog, seeding it on first use.
func (s *Store) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	found, err := s.load(ctx, ProductsKey, &products)
	if err != nil {
		return nil, err
	}
	if found {
		return products, nil
	}

	seed := models.SeedProducts()
	if err := s.Commit(ctx, State{Products: seed}); err != nil {
		return nil, fmt.Errorf("seed products: %w", err)
	}
	s.logger.Info("product catalog seeded", zap.Int("count", len(seed)))
	return seed, nil
}

// Inventory returns every batch.
func (s *Store) Inventory(ctx context.Context) ([]models.InventoryBatch, error) {
	var batches []models.InventoryBatch
	if _, err := s.load(ctx, InventoryKey, &batches); err != nil {
		return nil, err
	}
	if batches == nil {
		batches = []models.InventoryBatch{}
	}
	return batches, nil
}

// TransactionLogs returns every recorded movement.
func (s *Store) TransactionLogs(ctx context.Context) ([]models.TransactionLog, error) {
	var logs []models.TransactionLog
	if _, err := s.load(ctx, TransactionsKey, &logs); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.TransactionLog{}
	}
	return logs, nil
}

// Snapshot loads all three collections.
func (s *Store) Snapshot(ctx context.Context) (State, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return State{}, err
	}
	inventory, err := s.Inventory(ctx)
	if err != nil {
		return State{}, err
	}
	logs, err := s.TransactionLogs(ctx)
	if err != nil {
		return State{}, err
	}
	return State{Products: products, Inventory: inventory, Transactions: logs}, nil
}

// Commit writes the non-nil collections of state in a single backend call.
func (s *Store) Commit(ctx context.Context, state State) error {
	values := make(map[string]string, 3)

	if state.Products != nil {
		if err := encodeInto(values, ProductsKey, state.Products); err != nil {
			return err
		}
	}
	if state.Inventory != nil {
		if err := encodeInto(values, InventoryKey, state.Inventory); err != nil {
			return err
		}
	}
	if state.Transactions != nil {
		if err := encodeInto(values, TransactionsKey, state.Transactions); err != nil {
			return err
		}
	}

	if len(values) == 0 {
		return nil
	}

	if err := s.kv.SetMany(ctx, values); err != nil {
		return fmt.Errorf("commit collections: %w", err)
	}
	s.logger.Debug("collections committed", zap.Int("keys", len(values)))
	return nil
}

// Close releases the backend.
func (s *Store) Close(ctx context.Context) error {
	return s.kv.Close(ctx)
}

func (s *Store) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !found || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("%w %s: %v", ErrCorruptCollection, key, err)
	}
	return true, nil
}

func encodeInto(values map[string]string, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	values[key] = string(raw)
	return nil
}
