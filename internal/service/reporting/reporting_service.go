package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/domain/models"
	"github.com/mamadbah2/stockledger/internal/repository/mongodb"
	repo "github.com/mamadbah2/stockledger/internal/repository/sheets"
)

const (
	stockDataRange = "Stock!A:E"
	stockDateRange = "Stock!A:A"
)

// Ledger is the read side of the ledger engine used for reports.
type Ledger interface {
	Products(ctx context.Context) ([]models.Product, error)
	Batches(ctx context.Context, productID string, onlyAvailable bool) ([]models.InventoryBatch, error)
}

// Service builds daily stock snapshots and publishes them.
type Service struct {
	ledger       Ledger
	sheets       repo.Repository
	snapshots    mongodb.SnapshotRepository
	expiryWindow int
	logger       *zap.Logger
}

// NewService wires a new reporting service instance. The sheets and snapshot
// repositories are optional.
func NewService(l Ledger, sheets repo.Repository, snapshots mongodb.SnapshotRepository, expiryWarningDays int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:       l,
		sheets:       sheets,
		snapshots:    snapshots,
		expiryWindow: expiryWarningDays,
		logger:       logger,
	}
}

// StockSnapshot aggregates the available batches of every product. Batches
// expiring within the warning window, or already expired, are listed as
// expiring.
func (s *Service) StockSnapshot(ctx context.Context, now time.Time) (models.StockSnapshot, error) {
	products, err := s.ledger.Products(ctx)
	if err != nil {
		return models.StockSnapshot{}, fmt.Errorf("load products: %w", err)
	}

	today := models.DateOf(now)
	horizon := today.AddDays(s.expiryWindow)

	snapshot := models.StockSnapshot{
		Date:      today.Time(),
		Products:  make([]models.ProductStock, 0, len(products)),
		CreatedAt: now,
	}

	for _, p := range products {
		batches, err := s.ledger.Batches(ctx, p.ID, true)
		if err != nil {
			return models.StockSnapshot{}, fmt.Errorf("load batches for %s: %w", p.ID, err)
		}

		stock := models.ProductStock{
			ProductID:   p.ID,
			ProductName: p.Name,
			Batches:     batches,
			Expiring:    []models.InventoryBatch{},
		}
		for _, b := range batches {
			stock.Total += b.Quantity
			if !b.ExpirationDate.IsZero() && b.ExpirationDate.Compare(horizon) <= 0 {
				stock.Expiring = append(stock.Expiring, b)
			}
		}

		snapshot.TotalUnits += stock.Total
		snapshot.ExpiringCount += len(stock.Expiring)
		snapshot.Products = append(snapshot.Products, stock)
	}

	sort.SliceStable(snapshot.Products, func(i, j int) bool {
		return snapshot.Products[i].ProductName < snapshot.Products[j].ProductName
	})

	return snapshot, nil
}

// FormatSnapshot renders a snapshot as a short plain-text summary.
func FormatSnapshot(snapshot models.StockSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stock report %s\n", models.DateOf(snapshot.Date).FormatDisplay())
	fmt.Fprintf(&b, "Total units: %d\n", snapshot.TotalUnits)

	for _, p := range snapshot.Products {
		if p.Total == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d\n", p.ProductName, p.Total)
	}

	if snapshot.ExpiringCount == 0 {
		b.WriteString("No batches close to expiry.")
		return b.String()
	}

	fmt.Fprintf(&b, "Expiring soon (%d):\n", snapshot.ExpiringCount)
	for _, p := range snapshot.Products {
		for _, batch := range p.Expiring {
			fmt.Fprintf(&b, "- %s exp %s: %d\n", p.ProductName, batch.ExpirationDate.FormatDisplay(), batch.Quantity)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// PublishSnapshot appends one row per product to the Stock sheet and stores
// the snapshot when a snapshot repository is configured. A date already
// present in the sheet is not mirrored twice.
func (s *Service) PublishSnapshot(ctx context.Context, snapshot models.StockSnapshot) error {
	if s.sheets != nil {
		if err := s.mirror(ctx, snapshot); err != nil {
			return err
		}
	}

	if s.snapshots != nil {
		if err := s.snapshots.SaveStockSnapshot(ctx, snapshot); err != nil {
			return fmt.Errorf("save stock snapshot: %w", err)
		}
		s.logger.Info("snapshot stored", zap.Time("date", snapshot.Date))
	}

	return nil
}

func (s *Service) mirror(ctx context.Context, snapshot models.StockSnapshot) error {
	date := models.DateOf(snapshot.Date).String()

	existing, err := s.sheets.ReadRange(ctx, stockDateRange)
	if err != nil {
		return fmt.Errorf("load stock sheet: %w", err)
	}
	for _, row := range existing {
		if len(row) > 0 && fmt.Sprint(row[0]) == date {
			s.logger.Info("snapshot already mirrored", zap.String("date", date))
			return nil
		}
	}

	rows := make([][]interface{}, 0, len(snapshot.Products))
	for _, p := range snapshot.Products {
		rows = append(rows, []interface{}{date, p.ProductID, p.ProductName, p.Total, len(p.Expiring)})
	}
	if err := s.sheets.AppendRows(ctx, stockDataRange, rows); err != nil {
		return fmt.Errorf("mirror stock rows: %w", err)
	}

	s.logger.Info("snapshot mirrored to sheet", zap.Int("rows", len(rows)))
	return nil
}
