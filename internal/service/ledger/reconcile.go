package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/domain/models"
	"github.com/mamadbah2/stockledger/internal/repository/store"
)

// Orphan is an imported stock out whose batch had no prior stock in. It is
// kept in the log but does not touch inventory.
type Orphan struct {
	ProductID      string      `json:"productId"`
	ExpirationDate models.Date `json:"expirationDate"`
	Date           models.Date `json:"date"`
	Quantity       int         `json:"quantity"`
}

// ImportReport summarizes a reconciliation.
type ImportReport struct {
	Products     int      `json:"products"`
	Transactions int      `json:"transactions"`
	Skipped      int      `json:"skipped"`
	Orphans      []Orphan `json:"orphans,omitempty"`
}

// ReconcileProduct replaces the history and batches of one existing product
// with the imported movements, replayed oldest first.
func (s *Service) ReconcileProduct(ctx context.Context, imported models.ImportedProduct) (ImportReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Snapshot(ctx)
	if err != nil {
		return ImportReport{}, err
	}

	product, ok := findProduct(state.Products, imported.ProductID)
	if !ok {
		return ImportReport{}, fmt.Errorf("%w: %s", ErrProductNotFound, imported.ProductID)
	}

	var report ImportReport
	r := s.newReplayer(&state, &report)
	if err := r.replay(product, imported.Transactions); err != nil {
		return ImportReport{}, err
	}
	report.Products = 1

	if err := s.checkOrphans(report); err != nil {
		return report, err
	}

	if err := s.store.Commit(ctx, store.State{Inventory: state.Inventory, Transactions: state.Transactions}); err != nil {
		return ImportReport{}, fmt.Errorf("save product import: %w", err)
	}

	s.logger.Info("product history reconciled",
		zap.String("product_id", product.ID),
		zap.Int("transactions", report.Transactions),
		zap.Int("orphans", len(report.Orphans)))
	return report, nil
}

// ImportCatalog upserts every imported product and reconciles its history.
// Entries without productId or productName are skipped. All changes are
// staged and committed once; on any error nothing is written.
func (s *Service) ImportCatalog(ctx context.Context, imported []models.ImportedProduct) (ImportReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Snapshot(ctx)
	if err != nil {
		return ImportReport{}, err
	}

	var report ImportReport
	r := s.newReplayer(&state, &report)

	for _, item := range imported {
		if strings.TrimSpace(item.ProductID) == "" || strings.TrimSpace(item.ProductName) == "" {
			s.logger.Warn("skipping imported product without id or name",
				zap.String("product_id", item.ProductID),
				zap.String("product_name", item.ProductName))
			report.Skipped++
			continue
		}

		product := models.Product{ID: item.ProductID, Name: item.ProductName, Packaging: item.Packaging}
		state.Products = upsertProduct(state.Products, product)

		if err := r.replay(product, item.Transactions); err != nil {
			return ImportReport{}, err
		}
		report.Products++
	}

	if err := s.checkOrphans(report); err != nil {
		return report, err
	}

	if err := s.store.Commit(ctx, state); err != nil {
		return ImportReport{}, fmt.Errorf("save catalog import: %w", err)
	}

	s.logger.Info("catalog import committed",
		zap.Int("products", report.Products),
		zap.Int("transactions", report.Transactions),
		zap.Int("skipped", report.Skipped),
		zap.Int("orphans", len(report.Orphans)))
	return report, nil
}

func (s *Service) checkOrphans(report ImportReport) error {
	if s.opts.StrictImport && len(report.Orphans) > 0 {
		first := report.Orphans[0]
		return fmt.Errorf("%w: %d event(s), first for product %s (exp: %s)",
			ErrOrphanedStockOut, len(report.Orphans), first.ProductID, first.ExpirationDate.FormatDisplay())
	}
	return nil
}

func upsertProduct(products []models.Product, p models.Product) []models.Product {
	for i := range products {
		if products[i].ID == p.ID {
			products[i] = p
			return products
		}
	}
	return append(products, p)
}

// replayer rebuilds batches and logs inside a staged state. index runs across
// the whole import so generated ids stay distinct.
type replayer struct {
	state  *store.State
	report *ImportReport
	logger *zap.Logger
	stamp  int64
	index  int
}

func (s *Service) newReplayer(state *store.State, report *ImportReport) *replayer {
	return &replayer{
		state:  state,
		report: report,
		logger: s.logger,
		stamp:  s.now().UnixMilli(),
	}
}

func (r *replayer) replay(product models.Product, txs []models.ImportedTransaction) error {
	for i, tx := range txs {
		if !tx.Type.Valid() {
			return fmt.Errorf("%w: product %s entry %d has type %q", ErrInvalidTransaction, product.ID, i, tx.Type)
		}
		if tx.Quantity <= 0 {
			return fmt.Errorf("%w: product %s entry %d has quantity %d", ErrInvalidTransaction, product.ID, i, tx.Quantity)
		}
	}

	r.state.Transactions = dropLogs(r.state.Transactions, product.ID)
	r.state.Inventory = dropBatches(r.state.Inventory, product.ID)

	ordered := make([]models.ImportedTransaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	seq := nextSeq(r.state.Transactions)
	for _, tx := range ordered {
		entry := models.TransactionLog{
			ID:             fmt.Sprintf("import-%d-%d", r.stamp, r.index),
			Seq:            seq,
			ProductID:      product.ID,
			ProductName:    product.Name,
			Type:           tx.Type,
			Quantity:       tx.Quantity,
			Date:           tx.Date,
			ExpirationDate: tx.ExpirationDate,
		}
		r.state.Transactions = append(r.state.Transactions, entry)
		r.index++
		seq++
		r.report.Transactions++

		r.apply(entry)
	}
	return nil
}

func (r *replayer) apply(entry models.TransactionLog) {
	idx := findBatch(r.state.Inventory, entry.BatchKey())

	switch entry.Type {
	case models.TransactionIn:
		if idx >= 0 {
			r.state.Inventory[idx].Quantity += entry.Quantity
			return
		}
		r.state.Inventory = append(r.state.Inventory, models.InventoryBatch{
			ProductID:      entry.ProductID,
			Quantity:       entry.Quantity,
			ExpirationDate: entry.ExpirationDate,
		})
	case models.TransactionOut:
		if idx >= 0 {
			// May go negative; the imported history is authoritative.
			r.state.Inventory[idx].Quantity -= entry.Quantity
			return
		}
		r.logger.Warn("stock out for non-existent batch during import",
			zap.String("product_id", entry.ProductID),
			zap.String("expiration_date", entry.ExpirationDate.String()),
			zap.String("date", entry.Date.String()),
			zap.Int("quantity", entry.Quantity))
		r.report.Orphans = append(r.report.Orphans, Orphan{
			ProductID:      entry.ProductID,
			ExpirationDate: entry.ExpirationDate,
			Date:           entry.Date,
			Quantity:       entry.Quantity,
		})
	}
}

func dropLogs(logs []models.TransactionLog, productID string) []models.TransactionLog {
	out := make([]models.TransactionLog, 0, len(logs))
	for _, l := range logs {
		if l.ProductID != productID {
			out = append(out, l)
		}
	}
	return out
}

func dropBatches(inventory []models.InventoryBatch, productID string) []models.InventoryBatch {
	out := make([]models.InventoryBatch, 0, len(inventory))
	for _, b := range inventory {
		if b.ProductID != productID {
			out = append(out, b)
		}
	}
	return out
}
