package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stockledger/internal/domain/models"
	"github.com/mamadbah2/stockledger/internal/repository/memory"
	"github.com/mamadbah2/stockledger/internal/repository/store"
	"github.com/mamadbah2/stockledger/internal/server/handlers"
	"github.com/mamadbah2/stockledger/internal/service/exchange"
	"github.com/mamadbah2/stockledger/internal/service/ledger"
	"github.com/mamadbah2/stockledger/internal/service/reporting"
	"github.com/mamadbah2/stockledger/pkg/clients/sheetsync"
)

type stubSheetSync struct {
	err      error
	exported int
}

func (s *stubSheetSync) ExportAll(_ context.Context, products []models.ProductExport) (string, error) {
	s.exported = len(products)
	return "", s.err
}

func (s *stubSheetSync) ExportProduct(context.Context, models.ProductExport) (string, error) {
	return "", s.err
}

func (s *stubSheetSync) ImportAll(context.Context) ([]models.ImportedProduct, error) {
	return nil, s.err
}

func (s *stubSheetSync) ImportProduct(context.Context, string) ([]models.ImportedTransaction, error) {
	return nil, s.err
}

type stubNotifier struct {
	sent []models.OutboundMessageRequest
}

func (s *stubNotifier) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	s.sent = append(s.sent, req)
	return nil
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	client   *stubSheetSync
	notifier *stubNotifier
}

func newTestServer(t *testing.T, password string) *testServer {
	t.Helper()
	l := ledger.NewService(store.New(memory.NewKVStore(), nil), ledger.Options{}, nil)
	client := &stubSheetSync{}
	notifier := &stubNotifier{}

	h := Handlers{
		Stock:   handlers.NewStockHandler(l, nil),
		Sync:    handlers.NewSyncHandler(exchange.NewService(l, client, nil), nil),
		Reports: handlers.NewReportHandler(reporting.NewService(l, nil, nil, 30, nil), notifier, "6590000000", nil),
	}
	return &testServer{t: t, handler: New(h, password, nil), client: client, notifier: notifier}
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "")
	rec := s.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStockLifecycle(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(http.MethodPost, "/products/90003/stock-in",
		`{"quantity": "10", "expirationDate": "30/06/2025", "transactionDate": "2025-01-10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[models.TransactionLog](t, rec)
	assert.Equal(t, models.TransactionIn, entry.Type)
	assert.Equal(t, models.MustParseDate("2025-06-30"), entry.ExpirationDate)

	rec = s.do(http.MethodPost, "/products/90003/stock-out",
		`{"quantity": 4, "expirationDate": "2025-06-30", "transactionDate": "11/01/2025"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/products/90003", "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[map[string]any](t, rec)
	assert.EqualValues(t, 6, detail["totalQuantity"])
	assert.Len(t, detail["batches"], 1)

	rec = s.do(http.MethodGet, "/products/90003/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]map[string]any](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, "11/01/2025", history[0]["date"])
	assert.EqualValues(t, 6, history[0]["balanceAfter"])
	assert.EqualValues(t, 10, history[1]["balanceAfter"])
	assert.Equal(t, "30/06/2025", history[1]["expirationDate"])

	rec = s.do(http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 13)
}

func TestStockErrors(t *testing.T) {
	s := newTestServer(t, "")
	rec := s.do(http.MethodPost, "/products/90003/stock-in", `{"quantity": 5, "expirationDate": "2025-06-30"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown product", "/products/nope/stock-in", `{"quantity": 1, "expirationDate": "2025-06-30"}`, http.StatusNotFound},
		{"zero quantity", "/products/90003/stock-in", `{"quantity": "0", "expirationDate": "2025-06-30"}`, http.StatusBadRequest},
		{"fractional quantity", "/products/90003/stock-in", `{"quantity": 1.5, "expirationDate": "2025-06-30"}`, http.StatusBadRequest},
		{"missing quantity", "/products/90003/stock-in", `{"expirationDate": "2025-06-30"}`, http.StatusBadRequest},
		{"missing expiration", "/products/90003/stock-in", `{"quantity": 1}`, http.StatusBadRequest},
		{"bad date", "/products/90003/stock-in", `{"quantity": 1, "expirationDate": "31/02/2025"}`, http.StatusBadRequest},
		{"unknown batch", "/products/90003/stock-out", `{"quantity": 1, "expirationDate": "2025-07-01"}`, http.StatusUnprocessableEntity},
		{"insufficient", "/products/90003/stock-out", `{"quantity": 6, "expirationDate": "2025-06-30"}`, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}

	rec = s.do(http.MethodGet, "/products/nope/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncRequiresPassword(t *testing.T) {
	s := newTestServer(t, "s3cret")

	rec := s.do(http.MethodPost, "/sync/export", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, s.client.exported)

	rec = s.do(http.MethodPost, "/sync/export", "", SyncPasswordHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/sync/export", "", SyncPasswordHeader, "s3cret")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 13, s.client.exported)
	assert.EqualValues(t, 13, decode[map[string]any](t, rec)["products"])

	rec = s.do(http.MethodGet, "/products", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSyncErrorMapping(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"not configured": {sheetsync.ErrNotConfigured, http.StatusServiceUnavailable},
		"network":        {&sheetsync.RemoteError{StatusCode: 500, Message: "boom"}, http.StatusBadGateway},
		"remote status":  {&sheetsync.RemoteError{Message: "sheet locked"}, http.StatusBadGateway},
		"malformed":      {sheetsync.ErrMalformedResponse, http.StatusBadGateway},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := newTestServer(t, "")
			s.client.err = tc.err
			rec := s.do(http.MethodPost, "/sync/import", "")
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}

	s := newTestServer(t, "")
	rec := s.do(http.MethodPost, "/products/90003/sync/export", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReports(t *testing.T) {
	s := newTestServer(t, "")
	rec := s.do(http.MethodPost, "/products/90004/stock-in", `{"quantity": 3, "expirationDate": "2025-06-30"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/reports/stock", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode[map[string]any](t, rec)["totalUnits"])

	rec = s.do(http.MethodGet, "/reports/stock?format=text", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Total units: 3")

	rec = s.do(http.MethodPost, "/reports/stock/send", "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, s.notifier.sent, 1)
	assert.Equal(t, "6590000000", s.notifier.sent[0].To)

	rec = s.do(http.MethodPost, "/reports/stock/send", `{"to": "6511111111"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "6511111111", s.notifier.sent[1].To)
}
