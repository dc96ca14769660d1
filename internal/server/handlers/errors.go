package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/service/exchange"
	"github.com/mamadbah2/stockledger/internal/service/ledger"
	"github.com/mamadbah2/stockledger/pkg/clients/sheetsync"
)

var errInvalidDate = errors.New("invalid date")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var remote *sheetsync.RemoteError
	switch {
	case errors.Is(err, ledger.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidTransaction),
		errors.Is(err, errInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrBatchNotFound),
		errors.Is(err, ledger.ErrOrphanedStockOut),
		errors.Is(err, exchange.ErrNothingToExport),
		errors.Is(err, exchange.ErrNoHistory),
		errors.Is(err, exchange.ErrNoRemoteHistory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sheetsync.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, sheetsync.ErrNetworkFailure),
		errors.Is(err, sheetsync.ErrMalformedResponse),
		errors.As(err, &remote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		logger.Warn("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.JSON(status, gin.H{"error": message})
}
