package services

import (
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// Routing keys of the events published by the services.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventInventoryLowStock  = "inventory.low_stock"
)

// EventPublisher sends domain events to the message broker.
type EventPublisher interface {
	Publish(routingKey string, payload interface{}) error
}

// OrderEvent is the payload of order.created and order.status_changed.
type OrderEvent struct {
	OrderID        string               `json:"order_id"`
	OrderNumber    string               `json:"order_number"`
	CustomerID     string               `json:"customer_id"`
	Status         models.OrderStatus   `json:"status"`
	PreviousStatus models.OrderStatus   `json:"previous_status,omitempty"`
	PaymentStatus  models.PaymentStatus `json:"payment_status"`
	Total          decimal.Decimal      `json:"total"`
	Message        string               `json:"message,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

// LowStockEvent is the payload of inventory.low_stock.
type LowStockEvent struct {
	ProductID   string             `json:"product_id"`
	ProductName string             `json:"product_name"`
	TotalStock  int                `json:"total_stock"`
	Status      models.StockStatus `json:"status"`
	OccurredAt  time.Time          `json:"occurred_at"`
}
