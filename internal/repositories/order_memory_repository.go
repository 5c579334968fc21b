package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// MemoryOrderRepository is an in-memory implementation of OrderRepository.
type MemoryOrderRepository struct {
	orders map[string]models.Order
	seq    uint
	mu     sync.RWMutex
}

// NewMemoryOrderRepository creates a new instance of MemoryOrderRepository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// cloneOrder copies the slices so callers never alias stored state.
func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	o.Events = append([]models.OrderTrackingEvent(nil), o.Events...)
	o.Notes = append([]models.OrderNote(nil), o.Notes...)
	return o
}

// GetAll returns matching orders, newest first.
func (r *MemoryOrderRepository) GetAll(_ context.Context, filter OrderFilter) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		orderList = append(orderList, cloneOrder(order))
	}
	sort.Slice(orderList, func(i, j int) bool { return orderList[i].CreatedAt.After(orderList[j].CreatedAt) })
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *MemoryOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s %w", id, ErrNotFound)
	}
	order = cloneOrder(order)
	return &order, nil
}

// Create adds a new order.
func (r *MemoryOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for _, existing := range r.orders {
		if existing.ID == order.ID || existing.OrderNumber == order.OrderNumber {
			return fmt.Errorf("order %s %w", order.OrderNumber, ErrDuplicate)
		}
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
	for i := range order.Events {
		r.seq++
		order.Events[i].ID = r.seq
		order.Events[i].OrderID = order.ID
	}
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// UpdateStatus applies the change only if the stored status still equals change.From.
func (r *MemoryOrderRepository) UpdateStatus(_ context.Context, id string, change StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s %w", id, ErrNotFound)
	}
	if order.Status != change.From {
		return fmt.Errorf("order %s is no longer %s: %w", id, change.From, ErrPreconditionFailed)
	}

	event := change.Event
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.seq++
	event.ID = r.seq
	event.OrderID = id

	order = cloneOrder(order)
	order.Status = change.To
	if change.PaymentStatus != "" {
		order.PaymentStatus = change.PaymentStatus
	}
	order.UpdatedAt = event.CreatedAt
	order.Events = append(order.Events, event)
	r.orders[id] = order
	return nil
}

func (r *MemoryOrderRepository) UpdatePaymentStatus(_ context.Context, id string, from models.OrderStatus, status models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s %w", id, ErrNotFound)
	}
	if order.Status != from {
		return fmt.Errorf("order %s is no longer %s: %w", id, from, ErrPreconditionFailed)
	}
	order.PaymentStatus = status
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

func (r *MemoryOrderRepository) AppendNote(_ context.Context, id string, note *models.OrderNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s %w", id, ErrNotFound)
	}
	r.seq++
	note.ID = r.seq
	note.OrderID = id
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	order = cloneOrder(order)
	order.Notes = append(order.Notes, *note)
	r.orders[id] = order
	return nil
}
