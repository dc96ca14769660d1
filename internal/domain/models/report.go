package models

import "time"

// ProductStock aggregates the batches of one product.
type ProductStock struct {
	ProductID   string           `bson:"product_id" json:"productId"`
	ProductName string           `bson:"product_name" json:"productName"`
	Total       int              `bson:"total" json:"total"`
	Batches     []InventoryBatch `bson:"-" json:"batches"`
	Expiring    []InventoryBatch `bson:"-" json:"expiring"`
}

// StockSnapshot is the daily inventory report, stored in MongoDB when that
// backend is configured.
type StockSnapshot struct {
	Date          time.Time      `bson:"date" json:"date"`
	Products      []ProductStock `bson:"products" json:"products"`
	TotalUnits    int            `bson:"total_units" json:"totalUnits"`
	ExpiringCount int            `bson:"expiring_count" json:"expiringCount"`
	CreatedAt     time.Time      `bson:"created_at" json:"createdAt"`
}
