package sheetsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/config"
	"github.com/mamadbah2/stockledger/internal/domain/models"
)

var (
	// ErrNetworkFailure covers transport errors and non-2xx responses.
	ErrNetworkFailure = errors.New("sheet service request failed")
	// ErrMalformedResponse indicates a body that could not be understood.
	ErrMalformedResponse = errors.New("malformed sheet service response")
	// ErrNotConfigured is returned when no endpoint URL is set.
	ErrNotConfigured = errors.New("sheet sync endpoint not configured")
)

// RemoteError is a failure reported by the sheet service. StatusCode is set
// when the HTTP exchange itself failed and zero when the body carried a
// non-success status.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sheet service error: status=%d, details=%s", e.StatusCode, e.Message)
	}
	return e.Message
}

// Is makes HTTP-level failures match ErrNetworkFailure.
func (e *RemoteError) Is(target error) bool {
	return target == ErrNetworkFailure && e.StatusCode != 0
}

// Client exposes the sheet service operations used by the application.
type Client interface {
	ExportAll(ctx context.Context, products []models.ProductExport) (string, error)
	ImportAll(ctx context.Context) ([]models.ImportedProduct, error)
	ExportProduct(ctx context.Context, product models.ProductExport) (string, error)
	ImportProduct(ctx context.Context, productID string) ([]models.ImportedTransaction, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient builds a sheet service client using the provided configuration values.
func NewClient(cfg config.SheetSyncConfig, logger *zap.Logger) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.URL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Cache-Control", "no-cache")
	if cfg.Timeout > 0 {
		restyClient.SetTimeout(cfg.Timeout)
	}

	return &APIClient{
		httpClient: restyClient,
		logger:     logger,
		now:        time.Now,
	}
}

type exportAllRequest struct {
	Action string                 `json:"action"`
	Data   []models.ProductExport `json:"data"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ExportAll posts the whole catalog and returns the service message.
func (c *APIClient) ExportAll(ctx context.Context, products []models.ProductExport) (string, error) {
	return c.post(ctx, exportAllRequest{Action: "exportAll", Data: products}, "Unknown error during Export All Data.")
}

// ExportProduct posts one product without the action wrapper.
func (c *APIClient) ExportProduct(ctx context.Context, product models.ProductExport) (string, error) {
	return c.post(ctx, product, "Unknown error during export.")
}

// ImportAll fetches every product with its transactions.
func (c *APIClient) ImportAll(ctx context.Context) ([]models.ImportedProduct, error) {
	body, err := c.get(ctx, map[string]string{"action": "importAll"})
	if err != nil {
		return nil, err
	}

	products, err := decodeCatalog(body)
	if err != nil {
		return nil, err
	}
	c.logger.Info("catalog fetched from sheet", zap.Int("products", len(products)))
	return products, nil
}

// ImportProduct fetches the transactions of one product.
func (c *APIClient) ImportProduct(ctx context.Context, productID string) ([]models.ImportedTransaction, error) {
	body, err := c.get(ctx, map[string]string{"action": "import", "productId": productID})
	if err != nil {
		return nil, err
	}

	txs, err := decodeProductHistory(body)
	if err != nil {
		return nil, err
	}
	c.logger.Info("product history fetched from sheet", zap.String("product_id", productID), zap.Int("transactions", len(txs)))
	return txs, nil
}

func (c *APIClient) post(ctx context.Context, payload any, fallback string) (string, error) {
	if c.httpClient.BaseURL == "" {
		return "", ErrNotConfigured
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post("")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}

	if !resp.IsSuccess() {
		return "", &RemoteError{StatusCode: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	}

	var result statusResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if result.Status != "success" {
		message := result.Message
		if message == "" {
			message = fallback
		}
		return "", &RemoteError{Message: message}
	}

	return result.Message, nil
}

func (c *APIClient) get(ctx context.Context, params map[string]string) ([]byte, error) {
	if c.httpClient.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("t", strconv.FormatInt(c.now().UnixMilli(), 10)).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}

	if !resp.IsSuccess() {
		return nil, &RemoteError{StatusCode: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	}

	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	return body, nil
}

var _ Client = (*APIClient)(nil)
