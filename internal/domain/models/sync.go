package models

// ImportedTransaction is one movement received from the sheet service.
type ImportedTransaction struct {
	Date           Date
	Type           TransactionType
	Quantity       int
	ExpirationDate Date
}

// ImportedProduct is a product with its full movement history as held by the
// sheet service.
type ImportedProduct struct {
	ProductID    string
	ProductName  string
	Packaging    string
	Transactions []ImportedTransaction
}

// ExportedTransaction is the wire shape of one movement sent to the sheet service.
type ExportedTransaction struct {
	Date           string          `json:"date"`
	Type           TransactionType `json:"type"`
	Quantity       int             `json:"quantity"`
	ExpirationDate string          `json:"expirationDate"`
}

// ProductExport is one product joined with its movements.
type ProductExport struct {
	ProductID    string                `json:"productId"`
	ProductName  string                `json:"productName"`
	Packaging    string                `json:"packaging,omitempty"`
	Transactions []ExportedTransaction `json:"transactions"`
}
