package models

// StockStatus classifies a product's aggregated stock.
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

// StockLevel is the aggregated stock of a product across its variants.
type StockLevel struct {
	TotalStock int         `json:"total_stock"`
	Status     StockStatus `json:"status"`
}

// InventoryItem is a row of the admin inventory view.
type InventoryItem struct {
	Product    Product     `json:"product"`
	TotalStock int         `json:"total_stock"`
	Status     StockStatus `json:"status"`
}
