// Package exchange moves the ledger to and from the spreadsheet web app.
package exchange

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/domain/models"
	"github.com/mamadbah2/stockledger/internal/service/ledger"
	"github.com/mamadbah2/stockledger/pkg/clients/sheetsync"
)

var (
	// ErrNothingToExport indicates an empty catalog.
	ErrNothingToExport = errors.New("no products available to export")
	// ErrNoHistory indicates a product without transactions.
	ErrNoHistory = errors.New("no transaction history available for this product to export")
	// ErrNoRemoteHistory indicates the sheet holds no transactions for the product.
	ErrNoRemoteHistory = errors.New("no transactions found in the sheet for this product")
)

// Ledger is the part of the ledger engine the exchange needs.
type Ledger interface {
	Products(ctx context.Context) ([]models.Product, error)
	Product(ctx context.Context, productID string) (models.Product, error)
	ProductTransactions(ctx context.Context, productID string) ([]models.TransactionLog, error)
	ImportCatalog(ctx context.Context, imported []models.ImportedProduct) (ledger.ImportReport, error)
	ReconcileProduct(ctx context.Context, imported models.ImportedProduct) (ledger.ImportReport, error)
}

// Service orchestrates exports and imports.
type Service struct {
	ledger Ledger
	client sheetsync.Client
	logger *zap.Logger
}

// NewService wires a new exchange service instance.
func NewService(l Ledger, client sheetsync.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: l, client: client, logger: logger}
}

// ExportAll sends every product joined with its history.
func (s *Service) ExportAll(ctx context.Context) (models.SyncReply, error) {
	products, err := s.ledger.Products(ctx)
	if err != nil {
		return models.SyncReply{}, err
	}
	if len(products) == 0 {
		return models.SyncReply{}, ErrNothingToExport
	}

	payload := make([]models.ProductExport, 0, len(products))
	transactions := 0
	for _, p := range products {
		logs, err := s.ledger.ProductTransactions(ctx, p.ID)
		if err != nil {
			return models.SyncReply{}, err
		}
		payload = append(payload, buildExport(p, logs))
		transactions += len(logs)
	}

	message, err := s.client.ExportAll(ctx, payload)
	if err != nil {
		s.logger.Error("export all failed", zap.Error(err))
		return models.SyncReply{}, fmt.Errorf("export all data: %w", err)
	}
	if message == "" {
		message = fmt.Sprintf("Export All Data successful. %d products processed.", len(products))
	}

	s.logger.Info("catalog exported", zap.Int("products", len(products)), zap.Int("transactions", transactions))
	return models.SyncReply{Message: message, Products: len(products), Transactions: transactions}, nil
}

// ImportAll fetches the catalog from the sheet and reconciles it in one commit.
func (s *Service) ImportAll(ctx context.Context) (models.SyncReply, error) {
	imported, err := s.client.ImportAll(ctx)
	if err != nil {
		s.logger.Error("import all failed", zap.Error(err))
		return models.SyncReply{}, fmt.Errorf("import all data: %w", err)
	}

	if len(imported) == 0 {
		return models.SyncReply{Message: "No data received or no products to import from Google Sheet."}, nil
	}

	report, err := s.ledger.ImportCatalog(ctx, imported)
	if err != nil {
		s.logger.Error("catalog reconciliation failed", zap.Error(err))
		return models.SyncReply{}, fmt.Errorf("import all data: %w", err)
	}

	message := fmt.Sprintf("Import All Data successful! %d products processed. Local data updated.", report.Products)
	if len(report.Orphans) > 0 {
		message += fmt.Sprintf(" %d stock out(s) referenced batches with no prior stock in and were not applied.", len(report.Orphans))
	}

	return models.SyncReply{
		Message:      message,
		Products:     report.Products,
		Transactions: report.Transactions,
		Orphans:      len(report.Orphans),
	}, nil
}

// ExportProduct sends the history of one product.
func (s *Service) ExportProduct(ctx context.Context, productID string) (models.SyncReply, error) {
	product, err := s.ledger.Product(ctx, productID)
	if err != nil {
		return models.SyncReply{}, err
	}

	logs, err := s.ledger.ProductTransactions(ctx, productID)
	if err != nil {
		return models.SyncReply{}, err
	}
	if len(logs) == 0 {
		return models.SyncReply{}, ErrNoHistory
	}

	payload := buildExport(product, logs)
	payload.Packaging = ""

	message, err := s.client.ExportProduct(ctx, payload)
	if err != nil {
		s.logger.Error("product export failed", zap.String("product_id", productID), zap.Error(err))
		return models.SyncReply{}, fmt.Errorf("export %s: %w", product.Name, err)
	}
	if message == "" {
		message = fmt.Sprintf("Export successful for %s.", product.Name)
	}

	return models.SyncReply{Message: message, Products: 1, Transactions: len(logs)}, nil
}

// ImportProduct replaces the local history of one product with the sheet's.
func (s *Service) ImportProduct(ctx context.Context, productID string) (models.SyncReply, error) {
	if _, err := s.ledger.Product(ctx, productID); err != nil {
		return models.SyncReply{}, err
	}

	txs, err := s.client.ImportProduct(ctx, productID)
	if err != nil {
		s.logger.Error("product import failed", zap.String("product_id", productID), zap.Error(err))
		return models.SyncReply{}, fmt.Errorf("import %s: %w", productID, err)
	}
	if len(txs) == 0 {
		return models.SyncReply{}, ErrNoRemoteHistory
	}

	report, err := s.ledger.ReconcileProduct(ctx, models.ImportedProduct{ProductID: productID, Transactions: txs})
	if err != nil {
		return models.SyncReply{}, fmt.Errorf("import %s: %w", productID, err)
	}

	message := fmt.Sprintf("Successfully imported %d transactions and updated inventory.", report.Transactions)
	if len(report.Orphans) > 0 {
		message += fmt.Sprintf(" %d stock out(s) were not applied.", len(report.Orphans))
	}
	return models.SyncReply{
		Message:      message,
		Products:     1,
		Transactions: report.Transactions,
		Orphans:      len(report.Orphans),
	}, nil
}

func buildExport(p models.Product, logs []models.TransactionLog) models.ProductExport {
	txs := make([]models.ExportedTransaction, 0, len(logs))
	for _, l := range logs {
		txs = append(txs, models.ExportedTransaction{
			Date:           l.Date.String(),
			Type:           l.Type,
			Quantity:       l.Quantity,
			ExpirationDate: l.ExpirationDate.String(),
		})
	}
	return models.ProductExport{
		ProductID:    p.ID,
		ProductName:  p.Name,
		Packaging:    p.Packaging,
		Transactions: txs,
	}
}
