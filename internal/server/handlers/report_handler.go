package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/domain/models"
	"github.com/mamadbah2/stockledger/internal/service/reporting"
)

// Reporter builds stock snapshots.
type Reporter interface {
	StockSnapshot(ctx context.Context, now time.Time) (models.StockSnapshot, error)
}

// Notifier delivers text messages to operators.
type Notifier interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// ReportHandler serves the on-demand stock report.
type ReportHandler struct {
	reporter  Reporter
	notifier  Notifier
	recipient string
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportHandler constructs the HTTP handler adapter. notifier may be nil,
// in which case sending is disabled.
func NewReportHandler(reporter Reporter, notifier Notifier, recipient string, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{
		reporter:  reporter,
		notifier:  notifier,
		recipient: recipient,
		logger:    logger,
		now:       time.Now,
	}
}

type sendReportRequest struct {
	To string `json:"to"`
}

// Stock returns the current snapshot as JSON, or as text with ?format=text.
func (h *ReportHandler) Stock(c *gin.Context) {
	snapshot, err := h.reporter.StockSnapshot(c.Request.Context(), h.now())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if c.Query("format") == "text" {
		c.String(http.StatusOK, reporting.FormatSnapshot(snapshot))
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Send pushes the current report over WhatsApp to the configured recipient,
// or to the one given in the body.
func (h *ReportHandler) Send(c *gin.Context) {
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifications are not configured"})
		return
	}

	var req sendReportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("invalid send report payload", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	to := req.To
	if to == "" {
		to = h.recipient
	}
	if to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipient is required"})
		return
	}

	ctx := c.Request.Context()
	snapshot, err := h.reporter.StockSnapshot(ctx, h.now())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	msg := models.OutboundMessageRequest{To: to, Message: reporting.FormatSnapshot(snapshot)}
	if err := h.notifier.SendOutbound(ctx, msg); err != nil {
		h.logger.Error("failed sending report", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send report"})
		return
	}

	c.Status(http.StatusAccepted)
}
