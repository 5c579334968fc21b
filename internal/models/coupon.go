package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType is how a coupon's value is applied.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a discount code. Codes are stored upper-case.
type Coupon struct {
	ID                string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Code              string          `json:"code" gorm:"uniqueIndex;type:varchar(50);not null"`
	DiscountType      DiscountType    `json:"discount_type" gorm:"type:varchar(20);not null"`
	DiscountValue     decimal.Decimal `json:"discount_value" gorm:"type:decimal(12,2);not null"`
	MinPurchaseAmount decimal.Decimal `json:"min_purchase_amount" gorm:"type:decimal(12,2);not null"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	UsageLimit        *int            `json:"usage_limit,omitempty"`
	UsageCount        int             `json:"usage_count" gorm:"not null"`
	IsActive          bool            `json:"is_active" gorm:"not null"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NormalizeCouponCode makes lookups case-insensitive.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
