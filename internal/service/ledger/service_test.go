package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stockledger/internal/domain/models"
	"github.com/mamadbah2/stockledger/internal/repository/memory"
	"github.com/mamadbah2/stockledger/internal/repository/store"
)

const fishBall = "90003"

var (
	exp1 = models.MustParseDate("2025-06-30")
	exp2 = models.MustParseDate("2025-09-30")
	day1 = models.MustParseDate("2025-01-10")
	day2 = models.MustParseDate("2025-01-11")
	day3 = models.MustParseDate("2025-01-12")
)

func newTestService(t *testing.T, opts Options) (*Service, *store.Store) {
	t.Helper()
	st := store.New(memory.NewKVStore(), nil)
	svc := NewService(st, opts, nil)
	svc.now = func() time.Time { return time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC) }
	return svc, st
}

func batchQuantity(t *testing.T, st *store.Store, productID string, exp models.Date) (int, bool) {
	t.Helper()
	inventory, err := st.Inventory(context.Background())
	require.NoError(t, err)
	for _, b := range inventory {
		if b.ProductID == productID && b.ExpirationDate == exp {
			return b.Quantity, true
		}
	}
	return 0, false
}

func TestProductsSeededOnFirstUse(t *testing.T) {
	svc, st := newTestService(t, Options{})
	ctx := context.Background()

	products, err := svc.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 13)

	inventory, err := st.Inventory(ctx)
	require.NoError(t, err)
	assert.Empty(t, inventory)

	// second read comes from the store
	again, err := svc.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, products, again)
}

func TestAddStockCreatesThenIncrementsBatch(t *testing.T) {
	svc, st := newTestService(t, Options{})
	ctx := context.Background()

	first, err := svc.AddStock(ctx, fishBall, 10, exp1, day1)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionIn, first.Type)
	assert.Equal(t, "FOODFARE 鱼丸 - FISH BALL (10kg/ctn)", first.ProductName)
	assert.Equal(t, int64(1), first.Seq)

	second, err := svc.AddStock(ctx, fishBall, 5, exp1, day2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Seq)

	qty, ok := batchQuantity(t, st, fishBall, exp1)
	require.True(t, ok)
	assert.Equal(t, 15, qty)

	inventory, err := st.Inventory(ctx)
	require.NoError(t, err)
	assert.Len(t, inventory, 1)

	logs, err := st.TransactionLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestAddStockDefaultsTransactionDateToToday(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	entry, err := svc.AddStock(context.Background(), fishBall, 1, exp1, models.Date{})
	require.NoError(t, err)
	assert.Equal(t, models.NewDate(2025, time.February, 1), entry.Date)
}

func TestAddStockRejectsUnknownProductAndBadQuantity(t *testing.T) {
	svc, st := newTestService(t, Options{})
	ctx := context.Background()

	_, err := svc.AddStock(ctx, "nope", 10, exp1, day1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.AddStock(ctx, fishBall, 0, exp1, day1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddStock(ctx, fishBall, -3, exp1, day1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	logs, err := st.TransactionLogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestParseQuantity(t *testing.T) {
	qty, err := ParseQuantity(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, qty)

	for _, raw := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err := ParseQuantity(raw)
		assert.ErrorIs(t, err, ErrInvalidQuantity, raw)
	}
}

func TestRemoveStock(t *testing.T) {
	svc, st := newTestService(t, Options{})
	ctx := context.Background()

	_, err := svc.AddStock(ctx, fishBall, 10, exp1, day1)
	require.NoError(t, err)

	t.Run("missing batch", func(t *testing.T) {
		_, err := svc.RemoveStock(ctx, fishBall, 1, exp2, day2)
		assert.ErrorIs(t, err, ErrBatchNotFound)
	})

	t.Run("insufficient stock does not mutate", func(t *testing.T) {
		_, err := svc.RemoveStock(ctx, fishBall, 11, exp1, day2)
		require.ErrorIs(t, err, ErrInsufficientStock)

		var stockErr *InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, 10, stockErr.Available)
		assert.Equal(t, 11, stockErr.Requested)

		qty, _ := batchQuantity(t, st, fishBall, exp1)
		assert.Equal(t, 10, qty)
		logs, err := st.TransactionLogs(ctx)
		require.NoError(t, err)
		assert.Len(t, logs, 1)
	})

	t.Run("down to zero keeps batch", func(t *testing.T) {
		entry, err := svc.RemoveStock(ctx, fishBall, 10, exp1, day2)
		require.NoError(t, err)
		assert.Equal(t, models.TransactionOut, entry.Type)

		qty, ok := batchQuantity(t, st, fishBall, exp1)
		require.True(t, ok)
		assert.Equal(t, 0, qty)

		available, err := svc.Batches(ctx, fishBall, true)
		require.NoError(t, err)
		assert.Empty(t, available)

		all, err := svc.Batches(ctx, fishBall, false)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.RemoveStock(ctx, "missing", 1, exp1, day2)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})
}

func TestBatchQuantityMatchesSignedLogSum(t *testing.T) {
	svc, st := newTestService(t, Options{})
	ctx := context.Background()

	type op struct {
		add bool
		qty int
		exp models.Date
	}
	ops := []op{
		{true, 10, exp1}, {true, 4, exp2}, {false, 3, exp1}, {false, 50, exp2},
		{true, 7, exp1}, {false, 4, exp2}, {false, 1, exp2}, {false, 14, exp1},
	}
	for i, o := range ops {
		var err error
		date := day1.AddDays(i)
		if o.add {
			_, err = svc.AddStock(ctx, fishBall, o.qty, o.exp, date)
		} else {
			_, err = svc.RemoveStock(ctx, fishBall, o.qty, o.exp, date)
		}
		if err != nil {
			require.True(t, errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrBatchNotFound), err)
		}
	}

	logs, err := st.TransactionLogs(ctx)
	require.NoError(t, err)
	sums := map[models.BatchKey]int{}
	for _, l := range logs {
		sums[l.BatchKey()] += l.Type.Signed(l.Quantity)
	}

	inventory, err := st.Inventory(ctx)
	require.NoError(t, err)
	require.Len(t, inventory, len(sums))
	for _, b := range inventory {
		assert.Equal(t, sums[b.Key()], b.Quantity, b.ExpirationDate.String())
	}
}

func TestRunningBalance(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	_, err := svc.AddStock(ctx, fishBall, 10, exp1, day1)
	require.NoError(t, err)
	_, err = svc.RemoveStock(ctx, fishBall, 3, exp1, day2)
	require.NoError(t, err)

	entries, err := svc.RunningBalance(ctx, fishBall)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, day2, entries[0].Log.Date)
	assert.Equal(t, 7, entries[0].BalanceAfter)
	assert.Equal(t, day1, entries[1].Log.Date)
	assert.Equal(t, 10, entries[1].BalanceAfter)
}

func TestRunningBalanceOrdersSameDayBySequence(t *testing.T) {
	logs := []models.TransactionLog{
		{ID: "999-b", Seq: 9, Type: models.TransactionIn, Quantity: 5, Date: day3},
		{ID: "1000-a", Seq: 10, Type: models.TransactionOut, Quantity: 2, Date: day3},
		{ID: "5-c", Seq: 1, Type: models.TransactionIn, Quantity: 4, Date: day1},
	}

	entries := runningBalance(logs, 7)
	require.Len(t, entries, 3)

	// "1000-a" sorts before "999-b" lexicographically; the sequence number wins.
	assert.Equal(t, "1000-a", entries[0].Log.ID)
	assert.Equal(t, 7, entries[0].BalanceAfter)
	assert.Equal(t, "999-b", entries[1].Log.ID)
	assert.Equal(t, 9, entries[1].BalanceAfter)
	assert.Equal(t, "5-c", entries[2].Log.ID)
	assert.Equal(t, 4, entries[2].BalanceAfter)
}

func TestRunningBalanceConsistentWithConcurrentWrites(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	_, err := svc.AddStock(ctx, fishBall, 1, exp1, day1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := svc.AddStock(ctx, fishBall, 2, exp1, day2)
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < 50; i++ {
		entries, err := svc.RunningBalance(ctx, fishBall)
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		// The oldest log is the first stock in of 1 unit.
		assert.Equal(t, 1, entries[len(entries)-1].BalanceAfter)
		assert.Equal(t, 1+2*(len(entries)-1), entries[0].BalanceAfter)
	}
	wg.Wait()
}

func TestRunningBalanceEmpty(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	entries, err := svc.RunningBalance(context.Background(), fishBall)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
