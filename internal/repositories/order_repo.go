package repositories

import (
	"context"

	"storefront/internal/models"
)

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	Status     models.OrderStatus
	CustomerID string
}

// StatusChange is a compare-and-set on the order status. The event is appended
// in the same write. PaymentStatus is left untouched when empty.
type StatusChange struct {
	From          models.OrderStatus
	To            models.OrderStatus
	PaymentStatus models.PaymentStatus
	Event         models.OrderTrackingEvent
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	GetAll(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// Create persists the order with its items and events.
	Create(ctx context.Context, order *models.Order) error
	// UpdateStatus returns ErrPreconditionFailed when the stored status is not change.From.
	UpdateStatus(ctx context.Context, id string, change StatusChange) error
	// UpdatePaymentStatus returns ErrPreconditionFailed when the stored order status is not from.
	UpdatePaymentStatus(ctx context.Context, id string, from models.OrderStatus, status models.PaymentStatus) error
	AppendNote(ctx context.Context, id string, note *models.OrderNote) error
}
