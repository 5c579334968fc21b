package repositories

import (
	"context"

	"storefront/internal/models"
)

// CouponRepository defines the interface for coupon data access.
// Codes passed in are expected to be normalized already.
type CouponRepository interface {
	GetAll(ctx context.Context) ([]models.Coupon, error)
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
	SetActive(ctx context.Context, code string, active bool) (*models.Coupon, error)
	// Redeem increments usage_count only while it is below usage_limit.
	Redeem(ctx context.Context, id string) error
	// Release gives back a usage slot taken by Redeem.
	Release(ctx context.Context, id string) error
}
