package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func byID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

// GetAll returns matching orders with their items, newest first.
func (r *GORMOrderRepository) GetAll(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, nil
}

// GetByID returns an order with its items, timeline and notes.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Events", byID).
		Preload("Notes", byID).
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// Create inserts the order and its associations in a single transaction.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("order %s %w", order.OrderNumber, ErrDuplicate)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// UpdateStatus applies the change only if the stored status still equals change.From.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event := change.Event
		if event.CreatedAt.IsZero() {
			event.CreatedAt = time.Now()
		}
		event.OrderID = id

		updates := map[string]interface{}{
			"status":     change.To,
			"updated_at": event.CreatedAt,
		}
		if change.PaymentStatus != "" {
			updates["payment_status"] = change.PaymentStatus
		}

		res := tx.Model(&models.Order{}).Where("id = ? AND status = ?", id, change.From).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update status of order %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to look up order %s: %w", id, err)
			}
			if count == 0 {
				return fmt.Errorf("order with ID %s %w", id, ErrNotFound)
			}
			return fmt.Errorf("order %s is no longer %s: %w", id, change.From, ErrPreconditionFailed)
		}

		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to append tracking event to order %s: %w", id, err)
		}
		return nil
	})
}

func (r *GORMOrderRepository) UpdatePaymentStatus(ctx context.Context, id string, from models.OrderStatus, status models.PaymentStatus) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Order{}).Where("id = ? AND status = ?", id, from).Updates(map[string]interface{}{
		"payment_status": status,
		"updated_at":     time.Now(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update payment status of order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up order %s: %w", id, err)
		}
		if count == 0 {
			return fmt.Errorf("order with ID %s %w", id, ErrNotFound)
		}
		return fmt.Errorf("order %s is no longer %s: %w", id, from, ErrPreconditionFailed)
	}
	return nil
}

func (r *GORMOrderRepository) AppendNote(ctx context.Context, id string, note *models.OrderNote) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up order %s: %w", id, err)
		}
		if count == 0 {
			return fmt.Errorf("order with ID %s %w", id, ErrNotFound)
		}
		note.OrderID = id
		if err := tx.Create(note).Error; err != nil {
			return fmt.Errorf("failed to append note to order %s: %w", id, err)
		}
		return nil
	})
}
