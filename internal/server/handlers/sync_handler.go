package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/domain/models"
)

// Exchange is the bulk export and import service.
type Exchange interface {
	ExportAll(ctx context.Context) (models.SyncReply, error)
	ImportAll(ctx context.Context) (models.SyncReply, error)
	ExportProduct(ctx context.Context, productID string) (models.SyncReply, error)
	ImportProduct(ctx context.Context, productID string) (models.SyncReply, error)
}

// SyncHandler serves the spreadsheet sync endpoints.
type SyncHandler struct {
	svc    Exchange
	logger *zap.Logger
}

// NewSyncHandler constructs the HTTP handler adapter.
func NewSyncHandler(svc Exchange, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{svc: svc, logger: logger}
}

// ExportAll pushes the catalog and every transaction to the spreadsheet.
func (h *SyncHandler) ExportAll(c *gin.Context) {
	h.reply(c, func(ctx context.Context) (models.SyncReply, error) { return h.svc.ExportAll(ctx) })
}

// ImportAll replaces local history with the spreadsheet's catalog.
func (h *SyncHandler) ImportAll(c *gin.Context) {
	h.reply(c, func(ctx context.Context) (models.SyncReply, error) { return h.svc.ImportAll(ctx) })
}

// ExportProduct pushes one product's history to the spreadsheet.
func (h *SyncHandler) ExportProduct(c *gin.Context) {
	id := c.Param("id")
	h.reply(c, func(ctx context.Context) (models.SyncReply, error) { return h.svc.ExportProduct(ctx, id) })
}

// ImportProduct replaces one product's history with the spreadsheet copy.
func (h *SyncHandler) ImportProduct(c *gin.Context) {
	id := c.Param("id")
	h.reply(c, func(ctx context.Context) (models.SyncReply, error) { return h.svc.ImportProduct(ctx, id) })
}

func (h *SyncHandler) reply(c *gin.Context, op func(context.Context) (models.SyncReply, error)) {
	result, err := op(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
