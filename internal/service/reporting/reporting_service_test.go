package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stockledger/internal/domain/models"
	"github.com/mamadbah2/stockledger/internal/repository/memory"
	"github.com/mamadbah2/stockledger/internal/repository/store"
	"github.com/mamadbah2/stockledger/internal/service/ledger"
)

type fakeSheets struct {
	rows    [][]interface{}
	appends int
	err     error
}

func (f *fakeSheets) AppendRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	if f.err != nil {
		return f.err
	}
	if sheetRange != stockDataRange {
		return errors.New("unexpected range " + sheetRange)
	}
	f.appends++
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeSheets) ReadRange(_ context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange != stockDateRange {
		return nil, errors.New("unexpected range " + sheetRange)
	}
	out := make([][]interface{}, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row[:1])
	}
	return out, nil
}

type fakeSnapshots struct {
	saved []models.StockSnapshot
}

func (f *fakeSnapshots) SaveStockSnapshot(_ context.Context, snapshot models.StockSnapshot) error {
	f.saved = append(f.saved, snapshot)
	return nil
}

var reportNow = time.Date(2025, time.March, 1, 20, 0, 0, 0, time.UTC)

func seededLedger(t *testing.T) *ledger.Service {
	t.Helper()
	l := ledger.NewService(store.New(memory.NewKVStore(), nil), ledger.Options{}, nil)
	ctx := context.Background()
	day := models.NewDate(2025, time.February, 1)

	_, err := l.AddStock(ctx, "90003", 10, models.NewDate(2025, time.March, 15), day)
	require.NoError(t, err)
	_, err = l.AddStock(ctx, "90003", 4, models.NewDate(2025, time.December, 31), day)
	require.NoError(t, err)
	_, err = l.AddStock(ctx, "90004", 3, models.NewDate(2025, time.February, 20), day)
	require.NoError(t, err)
	_, err = l.AddStock(ctx, "90005", 7, models.Date{}, day)
	require.NoError(t, err)
	_, err = l.AddStock(ctx, "90006", 2, models.NewDate(2025, time.March, 2), day)
	require.NoError(t, err)
	_, err = l.RemoveStock(ctx, "90006", 2, models.NewDate(2025, time.March, 2), day)
	require.NoError(t, err)
	return l
}

func TestStockSnapshot(t *testing.T) {
	svc := NewService(seededLedger(t), nil, nil, 30, nil)

	snapshot, err := svc.StockSnapshot(context.Background(), reportNow)
	require.NoError(t, err)

	assert.Equal(t, models.NewDate(2025, time.March, 1).Time(), snapshot.Date)
	assert.Len(t, snapshot.Products, 13)
	assert.Equal(t, 24, snapshot.TotalUnits)
	// 90003 exp 15/03 is inside the window, 90004 has already expired,
	// the empty 90006 batch is not available.
	assert.Equal(t, 2, snapshot.ExpiringCount)

	byID := map[string]models.ProductStock{}
	for _, p := range snapshot.Products {
		byID[p.ProductID] = p
	}
	assert.Equal(t, 14, byID["90003"].Total)
	require.Len(t, byID["90003"].Expiring, 1)
	assert.Equal(t, 10, byID["90003"].Expiring[0].Quantity)
	assert.Len(t, byID["90004"].Expiring, 1)
	assert.Empty(t, byID["90005"].Expiring)
	assert.Zero(t, byID["90006"].Total)
}

func TestFormatSnapshot(t *testing.T) {
	svc := NewService(seededLedger(t), nil, nil, 30, nil)
	snapshot, err := svc.StockSnapshot(context.Background(), reportNow)
	require.NoError(t, err)

	text := FormatSnapshot(snapshot)
	assert.Contains(t, text, "Stock report 01/03/2025")
	assert.Contains(t, text, "Total units: 24")
	assert.Contains(t, text, "Expiring soon (2):")
	assert.Contains(t, text, "exp 15/03/2025: 10")
	assert.NotContains(t, text, "THAI FISH CAKE")

	empty := FormatSnapshot(models.StockSnapshot{Date: reportNow})
	assert.Contains(t, empty, "No batches close to expiry.")
}

func TestPublishSnapshot(t *testing.T) {
	sheets := &fakeSheets{}
	snapshots := &fakeSnapshots{}
	svc := NewService(seededLedger(t), sheets, snapshots, 30, nil)
	ctx := context.Background()

	snapshot, err := svc.StockSnapshot(ctx, reportNow)
	require.NoError(t, err)
	require.NoError(t, svc.PublishSnapshot(ctx, snapshot))

	require.Len(t, sheets.rows, 13)
	assert.Equal(t, "2025-03-01", sheets.rows[0][0])
	require.Len(t, snapshots.saved, 1)
	assert.Equal(t, 24, snapshots.saved[0].TotalUnits)

	// A second run for the same day does not duplicate rows.
	require.NoError(t, svc.PublishSnapshot(ctx, snapshot))
	assert.Equal(t, 1, sheets.appends)
	assert.Len(t, sheets.rows, 13)
	assert.Len(t, snapshots.saved, 2)
}

func TestPublishSnapshotStopsOnSheetError(t *testing.T) {
	sheets := &fakeSheets{err: errors.New("quota exceeded")}
	snapshots := &fakeSnapshots{}
	svc := NewService(seededLedger(t), sheets, snapshots, 30, nil)
	ctx := context.Background()

	snapshot, err := svc.StockSnapshot(ctx, reportNow)
	require.NoError(t, err)

	err = svc.PublishSnapshot(ctx, snapshot)
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Empty(t, snapshots.saved)
}
