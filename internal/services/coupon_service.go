package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// EvaluateCoupon returns the discount coupon grants on subtotal at time now.
// It never changes the coupon; usage is only consumed when an order is placed.
// Checks run in a fixed order and the first failing one is reported.
func EvaluateCoupon(coupon *models.Coupon, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	reject := func(reason RejectionReason) (decimal.Decimal, error) {
		return decimal.Zero, &CouponRejectedError{Code: coupon.Code, Reason: reason}
	}

	switch {
	case !coupon.IsActive:
		return reject(ReasonInactive)
	case coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(now):
		return reject(ReasonExpired)
	case coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit:
		return reject(ReasonUsageExhausted)
	case subtotal.LessThan(coupon.MinPurchaseAmount):
		return reject(ReasonBelowMinimum)
	}

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case models.DiscountPercentage:
		discount = subtotal.Mul(coupon.DiscountValue).Div(hundred).Round(2)
	case models.DiscountFixed:
		discount = coupon.DiscountValue
	default:
		return decimal.Zero, invariantf("coupon %s has unknown discount type %q", coupon.Code, coupon.DiscountType)
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, nil
}

// CouponPreview is the discount a coupon would give right now.
type CouponPreview struct {
	Coupon   models.Coupon   `json:"coupon"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
}

// CouponService handles coupon administration and previews.
type CouponService struct {
	repo repositories.CouponRepository
	now  func() time.Time
}

// NewCouponService creates a new CouponService.
func NewCouponService(repo repositories.CouponRepository) *CouponService {
	return &CouponService{
		repo: repo,
		now:  time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *CouponService) WithClock(now func() time.Time) *CouponService {
	s.now = now
	return s
}

func validateCoupon(c *models.Coupon) error {
	if c.Code == "" || len(c.Code) > 50 {
		return fmt.Errorf("%w: coupon code must be 1 to 50 characters", ErrInvalidInput)
	}
	if !c.DiscountValue.IsPositive() {
		return fmt.Errorf("%w: discount value must be greater than zero", ErrInvalidInput)
	}
	switch c.DiscountType {
	case models.DiscountPercentage:
		if c.DiscountValue.GreaterThan(hundred) {
			return fmt.Errorf("%w: percentage discount cannot exceed 100", ErrInvalidInput)
		}
	case models.DiscountFixed:
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrInvalidInput, c.DiscountType)
	}
	if c.MinPurchaseAmount.IsNegative() {
		return fmt.Errorf("%w: minimum purchase amount must not be negative", ErrInvalidInput)
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return fmt.Errorf("%w: usage limit must not be negative", ErrInvalidInput)
	}
	return nil
}

// CreateCoupon normalizes the code, checks the coupon invariants and stores it unused.
func (s *CouponService) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	coupon.Code = models.NormalizeCouponCode(coupon.Code)
	coupon.UsageCount = 0
	if err := validateCoupon(coupon); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		return fmt.Errorf("failed to create coupon %s: %w", coupon.Code, err)
	}
	return nil
}

// ListCoupons retrieves all coupons.
func (s *CouponService) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	return s.repo.GetAll(ctx)
}

// GetCoupon looks a coupon up by code, ignoring case.
func (s *CouponService) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	return s.repo.GetByCode(ctx, models.NormalizeCouponCode(code))
}

// SetActive activates or deactivates a coupon.
func (s *CouponService) SetActive(ctx context.Context, code string, active bool) (*models.Coupon, error) {
	return s.repo.SetActive(ctx, models.NormalizeCouponCode(code), active)
}

// Preview evaluates a coupon against a cart subtotal without redeeming it.
func (s *CouponService) Preview(ctx context.Context, code string, subtotal decimal.Decimal) (*CouponPreview, error) {
	if subtotal.IsNegative() {
		return nil, fmt.Errorf("%w: subtotal must not be negative", ErrInvalidInput)
	}
	coupon, err := s.GetCoupon(ctx, code)
	if err != nil {
		return nil, err
	}
	discount, err := EvaluateCoupon(coupon, subtotal, s.now())
	if err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			logInvariant(err)
		}
		return nil, err
	}
	return &CouponPreview{Coupon: *coupon, Subtotal: subtotal, Discount: discount}, nil
}
