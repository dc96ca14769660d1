package ledger

import (
	"context"
	"sort"

	"github.com/mamadbah2/stockledger/internal/domain/models"
)

// RunningBalance returns the product's logs newest first, each paired with the
// product stock level right after it was applied. The newest entry carries the
// current inventory total; older balances are reconstructed by undoing every
// later movement. Both collections are read under the write lock so the seed
// total and the logs describe the same state.
func (s *Service) RunningBalance(ctx context.Context, productID string) ([]models.BalanceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.store.TransactionLogs(ctx)
	if err != nil {
		return nil, err
	}
	inventory, err := s.store.Inventory(ctx)
	if err != nil {
		return nil, err
	}

	return runningBalance(filterLogs(logs, productID), totalFor(inventory, productID)), nil
}

func runningBalance(logs []models.TransactionLog, currentTotal int) []models.BalanceEntry {
	sort.SliceStable(logs, func(i, j int) bool {
		return logLess(logs[j], logs[i])
	})

	entries := make([]models.BalanceEntry, len(logs))
	balance := currentTotal
	for i, l := range logs {
		if i > 0 {
			newer := logs[i-1]
			balance -= newer.Type.Signed(newer.Quantity)
		}
		entries[i] = models.BalanceEntry{Log: l, BalanceAfter: balance}
	}
	return entries
}

// logLess orders logs chronologically: by date, then sequence number. Logs
// without a sequence number fall back to their id.
func logLess(a, b models.TransactionLog) bool {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c < 0
	}
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return a.ID < b.ID
}
