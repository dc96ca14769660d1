package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/domain/models"
	"github.com/mamadbah2/stockledger/internal/service/ledger"
)

// Ledger is the part of the ledger engine exposed over HTTP.
type Ledger interface {
	Products(ctx context.Context) ([]models.Product, error)
	Product(ctx context.Context, productID string) (models.Product, error)
	Batches(ctx context.Context, productID string, onlyAvailable bool) ([]models.InventoryBatch, error)
	TotalQuantity(ctx context.Context, productID string) (int, error)
	AddStock(ctx context.Context, productID string, quantity int, expirationDate, transactionDate models.Date) (models.TransactionLog, error)
	RemoveStock(ctx context.Context, productID string, quantity int, expirationDate, transactionDate models.Date) (models.TransactionLog, error)
	RunningBalance(ctx context.Context, productID string) ([]models.BalanceEntry, error)
}

// StockHandler serves product, stock movement and history endpoints.
type StockHandler struct {
	ledger Ledger
	logger *zap.Logger
}

// NewStockHandler constructs the HTTP handler adapter.
func NewStockHandler(l Ledger, logger *zap.Logger) *StockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockHandler{ledger: l, logger: logger}
}

type productSummary struct {
	models.Product
	TotalQuantity int `json:"totalQuantity"`
}

type productDetail struct {
	models.Product
	TotalQuantity int                     `json:"totalQuantity"`
	Batches       []models.InventoryBatch `json:"batches"`
}

type historyEntry struct {
	ID             string                 `json:"id"`
	Date           string                 `json:"date"`
	Type           models.TransactionType `json:"type"`
	Quantity       int                    `json:"quantity"`
	ExpirationDate string                 `json:"expirationDate"`
	BalanceAfter   int                    `json:"balanceAfter"`
}

// ListProducts returns the catalog with the current total of each product.
func (h *StockHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	products, err := h.ledger.Products(ctx)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	out := make([]productSummary, 0, len(products))
	for _, p := range products {
		total, err := h.ledger.TotalQuantity(ctx, p.ID)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		out = append(out, productSummary{Product: p, TotalQuantity: total})
	}

	c.JSON(http.StatusOK, out)
}

// GetProduct returns a product with its non-empty batches.
func (h *StockHandler) GetProduct(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	product, err := h.ledger.Product(ctx, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	batches, err := h.ledger.Batches(ctx, id, true)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	total, err := h.ledger.TotalQuantity(ctx, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, productDetail{Product: product, TotalQuantity: total, Batches: batches})
}

// StockIn records a stock in. The expiration date is required.
func (h *StockHandler) StockIn(c *gin.Context) {
	quantity, expiration, date, ok := h.bindMovement(c)
	if !ok {
		return
	}
	if expiration.IsZero() {
		writeError(c, h.logger, fmt.Errorf("%w: expiration date is required", errInvalidDate))
		return
	}

	entry, err := h.ledger.AddStock(c.Request.Context(), c.Param("id"), quantity, expiration, date)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// StockOut records a stock out from the batch with the given expiration date.
func (h *StockHandler) StockOut(c *gin.Context) {
	quantity, expiration, date, ok := h.bindMovement(c)
	if !ok {
		return
	}

	entry, err := h.ledger.RemoveStock(c.Request.Context(), c.Param("id"), quantity, expiration, date)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// History returns the running balance of a product, newest first.
func (h *StockHandler) History(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.ledger.Product(ctx, id); err != nil {
		writeError(c, h.logger, err)
		return
	}

	entries, err := h.ledger.RunningBalance(ctx, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{
			ID:             e.Log.ID,
			Date:           e.Log.Date.FormatDisplay(),
			Type:           e.Log.Type,
			Quantity:       e.Log.Quantity,
			ExpirationDate: e.Log.ExpirationDate.FormatDisplay(),
			BalanceAfter:   e.BalanceAfter,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *StockHandler) bindMovement(c *gin.Context) (int, models.Date, models.Date, bool) {
	var req models.StockMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid stock movement payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return 0, models.Date{}, models.Date{}, false
	}

	quantity, err := ledger.ParseQuantity(string(req.Quantity))
	if err != nil {
		writeError(c, h.logger, err)
		return 0, models.Date{}, models.Date{}, false
	}

	expiration, err := parseFormDate(req.ExpirationDate)
	if err != nil {
		writeError(c, h.logger, err)
		return 0, models.Date{}, models.Date{}, false
	}

	date, err := parseFormDate(req.TransactionDate)
	if err != nil {
		writeError(c, h.logger, err)
		return 0, models.Date{}, models.Date{}, false
	}

	return quantity, expiration, date, true
}

func parseFormDate(value string) (models.Date, error) {
	d, err := models.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return models.Date{}, fmt.Errorf("%w: %v", errInvalidDate, err)
	}
	return d, nil
}
