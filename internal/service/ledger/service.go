// Package ledger applies stock movements to inventory batches, keeps the
// transaction log, reconstructs running balances and reconciles imported
// histories.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/domain/models"
	"github.com/mamadbah2/stockledger/internal/repository/store"
)

// Store is the persistence the ledger needs.
type Store interface {
	Products(ctx context.Context) ([]models.Product, error)
	Inventory(ctx context.Context) ([]models.InventoryBatch, error)
	TransactionLogs(ctx context.Context) ([]models.TransactionLog, error)
	Snapshot(ctx context.Context) (store.State, error)
	Commit(ctx context.Context, state store.State) error
}

// Options tunes import behaviour.
type Options struct {
	// StrictImport rejects imports containing a stock out for a batch that has
	// no prior stock in, instead of reporting it.
	StrictImport bool
}

// Service is the ledger engine.
type Service struct {
	store  Store
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	// mu serializes read-modify-write cycles within the process.
	mu sync.Mutex
}

// NewService wires a ledger over the given store.
func NewService(st Store, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  st,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// ParseQuantity converts operator input into a positive quantity.
func ParseQuantity(raw string) (int, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || qty <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	return qty, nil
}

// Products lists the catalog, seeding it on first use.
func (s *Service) Products(ctx context.Context) ([]models.Product, error) {
	return s.store.Products(ctx)
}

// Product returns one catalog entry.
func (s *Service) Product(ctx context.Context, productID string) (models.Product, error) {
	products, err := s.store.Products(ctx)
	if err != nil {
		return models.Product{}, err
	}
	p, ok := findProduct(products, productID)
	if !ok {
		return models.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return p, nil
}

// Batches returns the batches of a product ordered by expiration date. With
// onlyAvailable set, empty and negative batches are omitted.
func (s *Service) Batches(ctx context.Context, productID string, onlyAvailable bool) ([]models.InventoryBatch, error) {
	inventory, err := s.store.Inventory(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.InventoryBatch, 0)
	for _, b := range inventory {
		if b.ProductID != productID {
			continue
		}
		if onlyAvailable && b.Quantity <= 0 {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpirationDate.Before(out[j].ExpirationDate)
	})
	return out, nil
}

// TotalQuantity sums every batch of the product, including zero and negative ones.
func (s *Service) TotalQuantity(ctx context.Context, productID string) (int, error) {
	inventory, err := s.store.Inventory(ctx)
	if err != nil {
		return 0, err
	}
	return totalFor(inventory, productID), nil
}

// ProductTransactions returns the logs of a product, oldest first.
func (s *Service) ProductTransactions(ctx context.Context, productID string) ([]models.TransactionLog, error) {
	logs, err := s.store.TransactionLogs(ctx)
	if err != nil {
		return nil, err
	}
	out := filterLogs(logs, productID)
	sort.SliceStable(out, func(i, j int) bool {
		return logLess(out[i], out[j])
	})
	return out, nil
}

// AddStock records a stock in. A zero transactionDate means today.
func (s *Service) AddStock(ctx context.Context, productID string, quantity int, expirationDate, transactionDate models.Date) (models.TransactionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Snapshot(ctx)
	if err != nil {
		return models.TransactionLog{}, err
	}

	product, ok := findProduct(state.Products, productID)
	if !ok {
		s.logger.Warn("stock in rejected: unknown product", zap.String("product_id", productID))
		return models.TransactionLog{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	if quantity <= 0 {
		return models.TransactionLog{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	key := models.BatchKey{ProductID: productID, ExpirationDate: expirationDate}
	if idx := findBatch(state.Inventory, key); idx >= 0 {
		state.Inventory[idx].Quantity += quantity
	} else {
		state.Inventory = append(state.Inventory, models.InventoryBatch{
			ProductID:      productID,
			Quantity:       quantity,
			ExpirationDate: expirationDate,
		})
	}

	entry := s.newLog(state.Transactions, product, models.TransactionIn, quantity, expirationDate, transactionDate)
	state.Transactions = append(state.Transactions, entry)

	if err := s.store.Commit(ctx, store.State{Inventory: state.Inventory, Transactions: state.Transactions}); err != nil {
		return models.TransactionLog{}, fmt.Errorf("save stock in: %w", err)
	}

	s.logger.Info("stock added",
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
		zap.String("expiration_date", expirationDate.String()),
		zap.String("date", entry.Date.String()))
	return entry, nil
}

// RemoveStock records a stock out. It fails without mutating anything when the
// batch is missing or holds less than requested. A batch may reach zero and is
// kept.
func (s *Service) RemoveStock(ctx context.Context, productID string, quantity int, expirationDate, transactionDate models.Date) (models.TransactionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Snapshot(ctx)
	if err != nil {
		return models.TransactionLog{}, err
	}

	product, ok := findProduct(state.Products, productID)
	if !ok {
		s.logger.Warn("stock out rejected: unknown product", zap.String("product_id", productID))
		return models.TransactionLog{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	if quantity <= 0 {
		return models.TransactionLog{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	key := models.BatchKey{ProductID: productID, ExpirationDate: expirationDate}
	idx := findBatch(state.Inventory, key)
	if idx < 0 {
		return models.TransactionLog{}, fmt.Errorf("%w: %s (exp: %s)", ErrBatchNotFound, product.Name, expirationDate.FormatDisplay())
	}

	available := state.Inventory[idx].Quantity
	if available < quantity {
		return models.TransactionLog{}, &InsufficientStockError{
			ProductName:    product.Name,
			ExpirationDate: expirationDate,
			Available:      available,
			Requested:      quantity,
		}
	}

	state.Inventory[idx].Quantity -= quantity
	entry := s.newLog(state.Transactions, product, models.TransactionOut, quantity, expirationDate, transactionDate)
	state.Transactions = append(state.Transactions, entry)

	if err := s.store.Commit(ctx, store.State{Inventory: state.Inventory, Transactions: state.Transactions}); err != nil {
		return models.TransactionLog{}, fmt.Errorf("save stock out: %w", err)
	}

	s.logger.Info("stock removed",
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
		zap.String("expiration_date", expirationDate.String()),
		zap.String("date", entry.Date.String()))
	return entry, nil
}

func (s *Service) newLog(existing []models.TransactionLog, product models.Product, typ models.TransactionType, quantity int, expirationDate, transactionDate models.Date) models.TransactionLog {
	now := s.now()
	if transactionDate.IsZero() {
		transactionDate = models.DateOf(now)
	}
	return models.TransactionLog{
		ID:             fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		Seq:            nextSeq(existing),
		ProductID:      product.ID,
		ProductName:    product.Name,
		Type:           typ,
		Quantity:       quantity,
		Date:           transactionDate,
		ExpirationDate: expirationDate,
	}
}

func findProduct(products []models.Product, id string) (models.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// findBatch returns the index of the first batch matching key, or -1.
func findBatch(inventory []models.InventoryBatch, key models.BatchKey) int {
	for i, b := range inventory {
		if b.Key() == key {
			return i
		}
	}
	return -1
}

func filterLogs(logs []models.TransactionLog, productID string) []models.TransactionLog {
	out := make([]models.TransactionLog, 0)
	for _, l := range logs {
		if l.ProductID == productID {
			out = append(out, l)
		}
	}
	return out
}

func totalFor(inventory []models.InventoryBatch, productID string) int {
	total := 0
	for _, b := range inventory {
		if b.ProductID == productID {
			total += b.Quantity
		}
	}
	return total
}

func nextSeq(logs []models.TransactionLog) int64 {
	var highest int64
	for _, l := range logs {
		if l.Seq > highest {
			highest = l.Seq
		}
	}
	return highest + 1
}
