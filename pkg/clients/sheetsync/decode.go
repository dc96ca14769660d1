package sheetsync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mamadbah2/stockledger/internal/domain/models"
)

// flexString accepts JSON strings and numbers; sheet cells holding item codes
// often come back as numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*f = flexString(n.String())
	}
	return nil
}

type wireTransaction struct {
	Date           flexString `json:"date"`
	Type           flexString `json:"type"`
	Quantity       flexString `json:"quantity"`
	ExpirationDate flexString `json:"expirationDate"`
}

type wireProduct struct {
	ProductID    flexString        `json:"productId"`
	ProductName  flexString        `json:"productName"`
	Packaging    flexString        `json:"packaging"`
	Transactions []wireTransaction `json:"transactions"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// unwrap returns the data part of either a bare array or a {status, data}
// wrapper. A present status other than "success" is a remote failure.
func unwrap(body []byte) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		return body, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if env.Status != "" && env.Status != "success" {
		message := env.Message
		if message == "" {
			message = "Received non-successful status or invalid data format from Google Sheet."
		}
		return nil, &RemoteError{Message: message}
	}

	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return json.RawMessage("[]"), nil
	}
	return env.Data, nil
}

func decodeCatalog(body []byte) ([]models.ImportedProduct, error) {
	data, err := unwrap(body)
	if err != nil {
		return nil, err
	}

	var wire []wireProduct
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	products := make([]models.ImportedProduct, 0, len(wire))
	for i, wp := range wire {
		txs, err := convertTransactions(wp.Transactions)
		if err != nil {
			return nil, fmt.Errorf("%w: product %d (%s): %v", ErrMalformedResponse, i, wp.ProductID, err)
		}
		products = append(products, models.ImportedProduct{
			ProductID:    string(wp.ProductID),
			ProductName:  string(wp.ProductName),
			Packaging:    string(wp.Packaging),
			Transactions: txs,
		})
	}
	return products, nil
}

// decodeProductHistory expects {status: "success", data: [...]} as returned by
// the per-product import action.
func decodeProductHistory(body []byte) ([]models.ImportedTransaction, error) {
	var env envelope
	if err := json.Unmarshal(bytes.TrimSpace(body), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if env.Status != "success" {
		message := env.Message
		if message == "" {
			message = "Failed to import data or data format error."
		}
		return nil, &RemoteError{Message: message}
	}

	var wire []wireTransaction
	if err := json.Unmarshal(env.Data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	txs, err := convertTransactions(wire)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return txs, nil
}

func convertTransactions(wire []wireTransaction) ([]models.ImportedTransaction, error) {
	out := make([]models.ImportedTransaction, 0, len(wire))
	for i, wt := range wire {
		date, err := models.ParseDate(string(wt.Date))
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		expiration, err := models.ParseDate(string(wt.ExpirationDate))
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		qty, err := strconv.Atoi(string(wt.Quantity))
		if err != nil {
			return nil, fmt.Errorf("transaction %d: quantity %q: %w", i, wt.Quantity, err)
		}
		out = append(out, models.ImportedTransaction{
			Date:           date,
			Type:           models.TransactionType(strings.ToLower(string(wt.Type))),
			Quantity:       qty,
			ExpirationDate: expiration,
		})
	}
	return out, nil
}
