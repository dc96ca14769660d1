package ledger

import (
	"errors"
	"fmt"

	"github.com/mamadbah2/stockledger/internal/domain/models"
)

var (
	// ErrProductNotFound indicates the product id is not in the catalog.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidQuantity indicates the quantity is not a positive integer.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrBatchNotFound indicates no batch exists for the product and expiration date.
	ErrBatchNotFound = errors.New("stock batch not found")
	// ErrInsufficientStock is matched by *InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrOrphanedStockOut rejects a strict import that removes stock from a batch
	// that was never stocked in.
	ErrOrphanedStockOut = errors.New("stock out for non-existent batch")
	// ErrInvalidTransaction rejects an import containing an unusable movement.
	ErrInvalidTransaction = errors.New("invalid imported transaction")
)

// InsufficientStockError reports the available and requested quantities.
type InsufficientStockError struct {
	ProductName    string
	ExpirationDate models.Date
	Available      int
	Requested      int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s (exp: %s): available %d, tried to remove %d",
		e.ProductName, e.ExpirationDate.FormatDisplay(), e.Available, e.Requested)
}

// Is makes errors.Is(err, ErrInsufficientStock) hold.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
