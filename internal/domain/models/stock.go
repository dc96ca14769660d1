package models

// TransactionType enumerates the supported stock movements.
type TransactionType string

const (
	TransactionIn  TransactionType = "in"
	TransactionOut TransactionType = "out"
)

// Valid reports whether t is a known movement type.
func (t TransactionType) Valid() bool {
	return t == TransactionIn || t == TransactionOut
}

// Signed returns quantity with the sign of the movement.
func (t TransactionType) Signed(quantity int) int {
	if t == TransactionOut {
		return -quantity
	}
	return quantity
}

// Product is a catalog entry. Identity is ID.
type Product struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Packaging string `json:"packaging"`
}

// BatchKey identifies one inventory batch.
type BatchKey struct {
	ProductID      string
	ExpirationDate Date
}

// InventoryBatch holds the quantity on hand for one product and expiration date.
type InventoryBatch struct {
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	ExpirationDate Date   `json:"expirationDate"`
}

// Key returns the batch identity.
func (b InventoryBatch) Key() BatchKey {
	return BatchKey{ProductID: b.ProductID, ExpirationDate: b.ExpirationDate}
}

// TransactionLog is one recorded stock movement. Seq is a monotonic sequence
// number assigned at write time and breaks ties between logs sharing a date.
type TransactionLog struct {
	ID             string          `json:"id"`
	Seq            int64           `json:"seq"`
	ProductID      string          `json:"productId"`
	ProductName    string          `json:"productName"`
	Type           TransactionType `json:"type"`
	Quantity       int             `json:"quantity"`
	Date           Date            `json:"date"`
	ExpirationDate Date            `json:"expirationDate"`
}

// BatchKey returns the batch the movement applies to.
func (l TransactionLog) BatchKey() BatchKey {
	return BatchKey{ProductID: l.ProductID, ExpirationDate: l.ExpirationDate}
}

// BalanceEntry pairs a log with the product stock level right after it.
type BalanceEntry struct {
	Log          TransactionLog `json:"log"`
	BalanceAfter int            `json:"balanceAfter"`
}

// SeedProducts is the catalog written on first use.
func SeedProducts() []Product {
	return []Product{
		{ID: "90002", Name: "FOODFARE 苏东丸 - CUTTLEFISH BALL (10kg/ctn)", Packaging: "1kg x 10pkt"},
		{ID: "90003", Name: "FOODFARE 鱼丸 - FISH BALL (10kg/ctn)", Packaging: "1kg x 10pkt"},
		{ID: "90004", Name: "FOODFARE 圆饼 - ROUND FISH CAKE (10kg/ctn)", Packaging: "1kg x 10pkt"},
		{ID: "90005", Name: "FOODFARE 切片 - SLICED FISH CAKE (10kg/ctn)", Packaging: "1kg x 10pkt"},
		{ID: "90006", Name: "FOODFARE 泰式鱼饼 - THAI FISH CAKE (10kg/ctn)", Packaging: "1kg x 10pkt"},
		{ID: "90007", Name: "FOODFARE 虾丸 - PRAWN BALL (10kg/ctn)", Packaging: "1kg x 10pkt"},
		{ID: "90008", Name: "FOODFARE 海鲜条 - SEAFOOD STICK (10kg/ctn)", Packaging: "1kg x 10pkt"},
		{ID: "90009", Name: "FOODFARE 蟹肉饼 - CRAB MEAT CAKE (10kg/ctn)", Packaging: "1kg x 10pkt"},
		{ID: "90010", Name: "FOODFARE 香菇丸 - MUSHROOM BALL (10kg/ctn)", Packaging: "1kg x 10pkt"},
		{ID: "90021", Name: "FOODFARE 龙虾丸 - LOBSTER BALL (10kg/ctn)", Packaging: "1kg x 10pkt"},
		{ID: "90023", Name: "FOODFARE 五香 - NGOH HIANG (10kg/ctn)", Packaging: "1kg x 10pkt"},
		{ID: "90024", Name: "FOODFARE 香脆鱼块 - CHUNKY FISH NUGGET (10kg/ctn)", Packaging: "1kg x 10pkt"},
		{ID: "90025", Name: "FOODFARE 香脆鱼片 - BREADED FISH CHIP [FISH PATTY] (10kg/ctn", Packaging: "1kg x 10pkt"},
	}
}
