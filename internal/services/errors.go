package services

import (
	"errors"
	"fmt"
	"log"

	"storefront/internal/models"
)

var (
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrCouponRejected     = errors.New("coupon rejected")
	ErrOrderImmutable     = errors.New("order cannot change status")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrInvalidInput       = errors.New("invalid input")
	ErrProductUnavailable = errors.New("product unavailable")
)

// RejectionReason explains why a coupon cannot be applied.
type RejectionReason string

const (
	ReasonInactive       RejectionReason = "inactive"
	ReasonExpired        RejectionReason = "expired"
	ReasonUsageExhausted RejectionReason = "usage_exhausted"
	ReasonBelowMinimum   RejectionReason = "below_minimum"
)

// CouponRejectedError carries the first failing coupon check.
type CouponRejectedError struct {
	Code   string
	Reason RejectionReason
}

func (e *CouponRejectedError) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Reason)
}

func (e *CouponRejectedError) Unwrap() error { return ErrCouponRejected }

// InsufficientStockError names the variant that could not cover the request.
type InsufficientStockError struct {
	VariantID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s (requested: %d, available: %d)", e.VariantID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// TransitionError is a refused status change.
type TransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrOrderImmutable }

func invariantf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// logInvariant reports an internal consistency failure. These are defects, never business outcomes.
func logInvariant(err error) {
	log.Printf("INVARIANT VIOLATION: %v", err)
}
