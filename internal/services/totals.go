package services

import (
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// ShippingRule charges a flat rate below the free shipping threshold.
type ShippingRule struct {
	FreeThreshold decimal.Decimal
	FlatRate      decimal.Decimal
}

// Cost returns the shipping charge for a pre-discount subtotal.
func (r ShippingRule) Cost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(r.FreeThreshold) {
		return decimal.Zero
	}
	return r.FlatRate
}

// TaxRule applies a single rate to the merchandise value. Shipping is exempt.
type TaxRule struct {
	Rate decimal.Decimal
}

// Tax returns the tax on amount, rounded to cents.
func (r TaxRule) Tax(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.Rate).Round(2)
}

// LineTotal is unit price times quantity, rounded to cents.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// ComputeTotals derives the order totals from its items and optional coupon.
// Shipping is based on the subtotal before discount; tax on the subtotal after it.
func ComputeTotals(items []models.OrderItem, coupon *models.Coupon, shipping ShippingRule, tax TaxRule, now time.Time) (models.OrderTotals, error) {
	subtotal := decimal.Zero
	for _, item := range items {
		if item.Quantity < 1 {
			return models.OrderTotals{}, fmt.Errorf("%w: item %s has quantity %d", ErrInvalidQuantity, item.VariantID, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return models.OrderTotals{}, fmt.Errorf("%w: item %s has a negative price", ErrInvalidInput, item.VariantID)
		}
		subtotal = subtotal.Add(LineTotal(item.UnitPrice, item.Quantity))
	}

	discount := decimal.Zero
	if coupon != nil {
		d, err := EvaluateCoupon(coupon, subtotal, now)
		if err != nil {
			return models.OrderTotals{}, err
		}
		discount = d
	}
	if discount.GreaterThan(subtotal) {
		return models.OrderTotals{}, invariantf("discount %s exceeds subtotal %s", discount, subtotal)
	}

	totals := models.OrderTotals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping.Cost(subtotal),
		Tax:      tax.Tax(subtotal.Sub(discount)),
	}
	totals.Total = totals.Subtotal.Sub(totals.Discount).Add(totals.Shipping).Add(totals.Tax).Round(2)
	if totals.Total.IsNegative() {
		return models.OrderTotals{}, invariantf("order total %s is negative", totals.Total)
	}
	return totals, nil
}

// checkTotals verifies total = subtotal - discount + shipping + tax.
func checkTotals(t models.OrderTotals) error {
	want := t.Subtotal.Sub(t.Discount).Add(t.Shipping).Add(t.Tax).Round(2)
	if !want.Equal(t.Total) {
		return invariantf("total %s does not match components (%s)", t.Total, want)
	}
	for _, v := range []decimal.Decimal{t.Subtotal, t.Discount, t.Shipping, t.Tax, t.Total} {
		if v.IsNegative() {
			return invariantf("negative amount %s in order totals", v)
		}
	}
	return nil
}
