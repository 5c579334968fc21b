package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold applies to products without their own threshold.
const DefaultLowStockThreshold = 10

// Product represents a catalog entry. Its stock is always derived from its variants.
type Product struct {
	ID                string              `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name              string              `json:"name" gorm:"type:varchar(100);not null"`
	Description       string              `json:"description"`
	Price             decimal.Decimal     `json:"price" gorm:"type:decimal(12,2);not null"`
	CompareAtPrice    decimal.NullDecimal `json:"compare_at_price" gorm:"type:decimal(12,2)"`
	Category          string              `json:"category" gorm:"index;type:varchar(100)"`
	ImageURL          string              `json:"image_url"`
	IsActive          bool                `json:"is_active" gorm:"not null"`
	IsFeatured        bool                `json:"is_featured" gorm:"not null"`
	LowStockThreshold *int                `json:"low_stock_threshold,omitempty"`
	Variants          []Variant           `json:"variants,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// Threshold returns the low stock threshold for the product, falling back to def.
func (p *Product) Threshold(def int) int {
	if p.LowStockThreshold != nil {
		return *p.LowStockThreshold
	}
	return def
}

// Variant is a purchasable subdivision of a product (size, color) and the unit of stock.
type Variant struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID     string    `json:"product_id" gorm:"index;type:varchar(36);not null"`
	SKU           string    `json:"sku" gorm:"index;type:varchar(64)"`
	Color         string    `json:"color,omitempty"`
	Size          string    `json:"size,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	StockQuantity int       `json:"stock_quantity" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Label joins the option attributes, e.g. "Red / M".
func (v *Variant) Label() string {
	var parts []string
	for _, opt := range []string{v.Color, v.Size} {
		if opt != "" {
			parts = append(parts, opt)
		}
	}
	return strings.Join(parts, " / ")
}
