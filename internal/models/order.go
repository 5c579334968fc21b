package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusProcessing     OrderStatus = "processing"
	StatusShipped        OrderStatus = "shipped"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusReturned       OrderStatus = "returned"
	StatusCancelled      OrderStatus = "cancelled"
	StatusRefunded       OrderStatus = "refunded"
)

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusOutForDelivery,
		StatusDelivered, StatusReturned, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change is permitted.
// Delivered is not terminal: it can still become returned or refunded.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRefunded || s == StatusReturned
}

// PaymentStatus tracks the money side of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// ShippingAddress is copied onto the order at checkout and never follows later edits.
type ShippingAddress struct {
	FullName   string `json:"full_name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// OrderTotals are the monetary fields fixed at order creation.
type OrderTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Order represents a customer order.
type Order struct {
	ID              string               `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderNumber     string               `json:"order_number" gorm:"uniqueIndex;type:varchar(32)"`
	CustomerID      string               `json:"customer_id" gorm:"index;type:varchar(36)"`
	Status          OrderStatus          `json:"status" gorm:"index;type:varchar(32);not null"`
	PaymentStatus   PaymentStatus        `json:"payment_status" gorm:"type:varchar(16);not null"`
	Subtotal        decimal.Decimal      `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	Discount        decimal.Decimal      `json:"discount" gorm:"type:decimal(12,2);not null"`
	ShippingCost    decimal.Decimal      `json:"shipping" gorm:"type:decimal(12,2);not null"`
	Tax             decimal.Decimal      `json:"tax" gorm:"type:decimal(12,2);not null"`
	Total           decimal.Decimal      `json:"total" gorm:"type:decimal(12,2);not null"`
	CouponCode      string               `json:"coupon_code,omitempty" gorm:"type:varchar(50)"`
	ShippingAddress ShippingAddress      `json:"shipping_address" gorm:"embedded;embeddedPrefix:shipping_"`
	Items           []OrderItem          `json:"items" gorm:"foreignKey:OrderID"`
	Events          []OrderTrackingEvent `json:"events" gorm:"foreignKey:OrderID"`
	Notes           []OrderNote          `json:"notes" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// Totals returns the monetary fields of the order.
func (o *Order) Totals() OrderTotals {
	return OrderTotals{
		Subtotal: o.Subtotal,
		Discount: o.Discount,
		Shipping: o.ShippingCost,
		Tax:      o.Tax,
		Total:    o.Total,
	}
}

// OrderItem is a snapshot of a variant at the time of purchase.
type OrderItem struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID      string          `json:"order_id" gorm:"index;type:varchar(36)"`
	ProductID    string          `json:"product_id" gorm:"type:varchar(36)"`
	VariantID    string          `json:"variant_id" gorm:"type:varchar(36)"`
	ProductName  string          `json:"product_name"`
	VariantLabel string          `json:"variant_label,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Quantity     int             `json:"quantity" gorm:"not null"`
	Total        decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
}

// OrderTrackingEvent is an append-only entry of the order timeline.
type OrderTrackingEvent struct {
	ID        uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID   string      `json:"order_id" gorm:"index;type:varchar(36)"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(32);not null"`
	Message   string      `json:"message,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderNote is an append-only internal note.
type OrderNote struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID   string    `json:"order_id" gorm:"index;type:varchar(36)"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
