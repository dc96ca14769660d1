package models

import (
	"bytes"
	"encoding/json"
)

// OutboundMessageRequest represents a text notification pushed to an operator.
type OutboundMessageRequest struct {
	To      string `json:"to" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// StockMovementRequest is the body of the stock-in and stock-out endpoints.
// Dates may be given as DD/MM/YYYY or YYYY-MM-DD.
type StockMovementRequest struct {
	Quantity        QuantityInput `json:"quantity" binding:"required"`
	ExpirationDate  string        `json:"expirationDate"`
	TransactionDate string        `json:"transactionDate"`
}

// SyncReply is the user-facing outcome of a sync operation.
type SyncReply struct {
	Message      string `json:"message"`
	Products     int    `json:"products"`
	Transactions int    `json:"transactions"`
	Orphans      int    `json:"orphans,omitempty"`
}

// QuantityInput keeps the raw quantity typed by the operator. Both JSON numbers
// and strings are accepted; validation happens in the ledger.
type QuantityInput string

// UnmarshalJSON stores numbers and strings verbatim.
func (q *QuantityInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*q = QuantityInput(raw)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	*q = QuantityInput(data)
	return nil
}
