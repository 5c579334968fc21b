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

// MemoryCouponRepository is an in-memory implementation of CouponRepository keyed by code.
type MemoryCouponRepository struct {
	coupons map[string]models.Coupon
	mu      sync.RWMutex
}

// NewMemoryCouponRepository creates a new instance of MemoryCouponRepository.
func NewMemoryCouponRepository() *MemoryCouponRepository {
	return &MemoryCouponRepository{
		coupons: make(map[string]models.Coupon),
	}
}

func (r *MemoryCouponRepository) GetAll(_ context.Context) ([]models.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	coupons := make([]models.Coupon, 0, len(r.coupons))
	for _, c := range r.coupons {
		coupons = append(coupons, c)
	}
	sort.Slice(coupons, func(i, j int) bool { return coupons[i].CreatedAt.After(coupons[j].CreatedAt) })
	return coupons, nil
}

func (r *MemoryCouponRepository) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	coupon, ok := r.coupons[code]
	if !ok {
		return nil, fmt.Errorf("coupon %s %w", code, ErrNotFound)
	}
	return &coupon, nil
}

func (r *MemoryCouponRepository) Create(_ context.Context, coupon *models.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.coupons[coupon.Code]; ok {
		return fmt.Errorf("coupon %s %w", coupon.Code, ErrDuplicate)
	}
	if coupon.ID == "" {
		coupon.ID = uuid.New().String()
	}
	now := time.Now()
	coupon.CreatedAt = now
	coupon.UpdatedAt = now
	r.coupons[coupon.Code] = *coupon
	return nil
}

func (r *MemoryCouponRepository) SetActive(_ context.Context, code string, active bool) (*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	coupon, ok := r.coupons[code]
	if !ok {
		return nil, fmt.Errorf("coupon %s %w", code, ErrNotFound)
	}
	coupon.IsActive = active
	coupon.UpdatedAt = time.Now()
	r.coupons[code] = coupon
	return &coupon, nil
}

func (r *MemoryCouponRepository) Redeem(_ context.Context, id string) error {
	return r.mutate(id, func(c *models.Coupon) error {
		if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
			return fmt.Errorf("coupon %s has no usage left: %w", id, ErrPreconditionFailed)
		}
		c.UsageCount++
		return nil
	})
}

func (r *MemoryCouponRepository) Release(_ context.Context, id string) error {
	return r.mutate(id, func(c *models.Coupon) error {
		if c.UsageCount == 0 {
			return fmt.Errorf("coupon %s has no usage to release: %w", id, ErrPreconditionFailed)
		}
		c.UsageCount--
		return nil
	})
}

func (r *MemoryCouponRepository) mutate(id string, fn func(c *models.Coupon) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for code, c := range r.coupons {
		if c.ID != id {
			continue
		}
		if err := fn(&c); err != nil {
			return err
		}
		c.UpdatedAt = time.Now()
		r.coupons[code] = c
		return nil
	}
	return fmt.Errorf("coupon with ID %s %w", id, ErrNotFound)
}
