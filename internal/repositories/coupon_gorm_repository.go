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

// GORMCouponRepository is a GORM implementation of CouponRepository.
type GORMCouponRepository struct {
	db *gorm.DB
}

// NewGORMCouponRepository creates a new instance of GORMCouponRepository.
func NewGORMCouponRepository(db *gorm.DB) *GORMCouponRepository {
	return &GORMCouponRepository{db: db}
}

func (r *GORMCouponRepository) GetAll(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("failed to get coupons: %w", err)
	}
	return coupons, nil
}

func (r *GORMCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("coupon %s %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get coupon %s: %w", code, err)
	}
	return &coupon, nil
}

func (r *GORMCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	if coupon.ID == "" {
		coupon.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("coupon %s %w", coupon.Code, ErrDuplicate)
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

func (r *GORMCouponRepository) SetActive(ctx context.Context, code string, active bool) (*models.Coupon, error) {
	res := r.db.WithContext(ctx).Model(&models.Coupon{}).Where("code = ?", code).Updates(map[string]interface{}{
		"is_active":  active,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update coupon %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("coupon %s %w", code, ErrNotFound)
	}
	return r.GetByCode(ctx, code)
}

// Redeem is a single conditional UPDATE; two racing redemptions of the last slot cannot both match.
func (r *GORMCouponRepository) Redeem(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", id).
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + 1"),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to redeem coupon %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOr(ctx, id, fmt.Errorf("coupon %s has no usage left: %w", id, ErrPreconditionFailed))
	}
	return nil
}

func (r *GORMCouponRepository) Release(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND usage_count > 0", id).
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count - 1"),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to release coupon %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOr(ctx, id, fmt.Errorf("coupon %s has no usage to release: %w", id, ErrPreconditionFailed))
	}
	return nil
}

func (r *GORMCouponRepository) missingOr(ctx context.Context, id string, err error) error {
	var count int64
	if e := r.db.WithContext(ctx).Model(&models.Coupon{}).Where("id = ?", id).Count(&count).Error; e != nil {
		return fmt.Errorf("failed to look up coupon %s: %w", id, e)
	}
	if count == 0 {
		return fmt.Errorf("coupon with ID %s %w", id, ErrNotFound)
	}
	return err
}
