package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
)

// CartItem is one line of the cart handed to checkout.
type CartItem struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// PlaceOrderRequest carries everything checkout needs. The cart is passed in
// explicitly rather than read from any shared state.
type PlaceOrderRequest struct {
	CustomerID      string
	Items           []CartItem
	ShippingAddress models.ShippingAddress
	CouponCode      string
}

// Pricing holds the shipping and tax rules applied at checkout.
type Pricing struct {
	Shipping ShippingRule
	Tax      TaxRule
}

// OrderService owns the order lifecycle: checkout, status changes and the timeline.
type OrderService struct {
	orders    repositories.OrderRepository
	products  repositories.ProductRepository
	variants  repositories.VariantRepository
	coupons   repositories.CouponRepository
	inventory *InventoryService
	publisher EventPublisher
	pricing   Pricing
	now       func() time.Time
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(
	orders repositories.OrderRepository,
	products repositories.ProductRepository,
	variants repositories.VariantRepository,
	coupons repositories.CouponRepository,
	inventory *InventoryService,
	publisher EventPublisher,
	pricing Pricing,
) *OrderService {
	return &OrderService{
		orders:    orders,
		products:  products,
		variants:  variants,
		coupons:   coupons,
		inventory: inventory,
		publisher: publisher,
		pricing:   pricing,
		now:       time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

// GetOrder retrieves a single order with its timeline and notes.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListOrders retrieves orders matching filter, newest first.
func (s *OrderService) ListOrders(ctx context.Context, filter repositories.OrderFilter) ([]models.Order, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, filter.Status)
	}
	return s.orders.GetAll(ctx, filter)
}

// mergeCart folds repeated variants into one line, keeping first-seen order.
func mergeCart(items []CartItem) ([]CartItem, error) {
	merged := make([]CartItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.VariantID == "" {
			return nil, fmt.Errorf("%w: cart item without variant", ErrInvalidInput)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: variant %s has quantity %d", ErrInvalidQuantity, item.VariantID, item.Quantity)
		}
		if i, ok := index[item.VariantID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.VariantID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// PlaceOrder commits a checkout. Stock for every line is taken with conditional
// updates before the order is stored; any failure gives back what was taken so
// neither inventory nor the coupon keep a partial change.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrInvalidInput)
	}
	lines, err := mergeCart(req.Items)
	if err != nil {
		return nil, err
	}
	now := s.now()

	// 1. Snapshot variants and products as they are right now.
	products := make(map[string]models.Product)
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		variant, err := s.variants.GetByID(ctx, line.VariantID)
		if err != nil {
			return nil, err
		}
		product, ok := products[variant.ProductID]
		if !ok {
			p, err := s.products.GetByID(ctx, variant.ProductID)
			if err != nil {
				return nil, err
			}
			product = *p
			products[product.ID] = product
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: %s is not for sale", ErrProductUnavailable, product.Name)
		}

		image := variant.ImageURL
		if image == "" {
			image = product.ImageURL
		}
		items = append(items, models.OrderItem{
			ProductID:    product.ID,
			VariantID:    variant.ID,
			ProductName:  product.Name,
			VariantLabel: variant.Label(),
			ImageURL:     image,
			UnitPrice:    product.Price,
			Quantity:     line.Quantity,
			Total:        LineTotal(product.Price, line.Quantity),
		})
	}

	// 2. Price the cart. The coupon check here is advisory; redemption below decides.
	var coupon *models.Coupon
	if code := models.NormalizeCouponCode(req.CouponCode); code != "" {
		coupon, err = s.coupons.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
	}
	totals, err := ComputeTotals(items, coupon, s.pricing.Shipping, s.pricing.Tax, now)
	if err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			logInvariant(err)
		}
		return nil, err
	}

	// 3. Take the stock.
	taken := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		if err := s.inventory.Decrement(ctx, item.VariantID, item.Quantity); err != nil {
			s.releaseStock(ctx, taken)
			return nil, err
		}
		taken = append(taken, item)
	}

	// 4. Redeem the coupon.
	if coupon != nil {
		if err := s.coupons.Redeem(ctx, coupon.ID); err != nil {
			s.releaseStock(ctx, taken)
			if errors.Is(err, repositories.ErrPreconditionFailed) {
				return nil, &CouponRejectedError{Code: coupon.Code, Reason: ReasonUsageExhausted}
			}
			return nil, fmt.Errorf("failed to redeem coupon %s: %w", coupon.Code, err)
		}
	}

	// 5. Persist.
	order := &models.Order{
		ID:              uuid.New().String(),
		OrderNumber:     newOrderNumber(now),
		CustomerID:      req.CustomerID,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		Subtotal:        totals.Subtotal,
		Discount:        totals.Discount,
		ShippingCost:    totals.Shipping,
		Tax:             totals.Tax,
		Total:           totals.Total,
		ShippingAddress: req.ShippingAddress,
		Items:           items,
		Events: []models.OrderTrackingEvent{{
			Status:    models.StatusPending,
			Message:   defaultMessages[models.StatusPending],
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if coupon != nil {
		order.CouponCode = coupon.Code
	}
	err = checkTotals(order.Totals())
	if err == nil {
		err = s.orders.Create(ctx, order)
	}
	if err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			logInvariant(err)
		}
		s.releaseStock(ctx, taken)
		if coupon != nil {
			if relErr := s.coupons.Release(ctx, coupon.ID); relErr != nil {
				log.Printf("Error releasing coupon %s after failed checkout: %v", coupon.Code, relErr)
			}
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	log.Printf("Order %s placed by %s: total %s", order.OrderNumber, order.CustomerID, order.Total)
	s.publish(EventOrderCreated, orderEvent(order, "", order.Events[0].Message, now))
	s.alertLowStock(ctx, products, now)
	return order, nil
}

// releaseStock gives back units taken by a checkout that did not complete.
func (s *OrderService) releaseStock(ctx context.Context, items []models.OrderItem) {
	for _, item := range items {
		if _, err := s.inventory.Restock(ctx, item.VariantID, item.Quantity); err != nil {
			log.Printf("Error releasing %d units of variant %s: %v", item.Quantity, item.VariantID, err)
		}
	}
}

// TransitionOrder moves an order to status. Re-applying the current status is a
// successful no-op that records nothing.
func (s *OrderService) TransitionOrder(ctx context.Context, id string, status models.OrderStatus, message string) (*models.Order, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, status)
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}
	if !CanTransition(order.Status, status) {
		return nil, &TransitionError{From: order.Status, To: status}
	}
	return s.applyStatus(ctx, order, repositories.StatusChange{
		From: order.Status,
		To:   status,
	}, message)
}

// RefundOrder refunds a delivered order. This is the payment path into the
// refunded status; it does not return stock.
func (s *OrderService) RefundOrder(ctx context.Context, id string, message string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == models.StatusRefunded {
		return order, nil
	}
	if order.Status != models.StatusDelivered {
		return nil, &TransitionError{From: order.Status, To: models.StatusRefunded}
	}
	return s.applyStatus(ctx, order, repositories.StatusChange{
		From:          order.Status,
		To:            models.StatusRefunded,
		PaymentStatus: models.PaymentRefunded,
	}, message)
}

// applyStatus restocks first when the target status returns goods, then
// compare-and-sets the status. Any failure leaves stock and order as they were.
func (s *OrderService) applyStatus(ctx context.Context, order *models.Order, change repositories.StatusChange, message string) (*models.Order, error) {
	now := s.now()
	change.Event = models.OrderTrackingEvent{
		Status:    change.To,
		Message:   messageOrDefault(message, change.To),
		CreatedAt: now,
	}

	var restocked []models.OrderItem
	if restocksOnEntry(change.To) {
		var err error
		if restocked, err = s.restockItems(ctx, order.Items); err != nil {
			return nil, err
		}
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, change); err != nil {
		s.takeBackStock(ctx, restocked)
		if !errors.Is(err, repositories.ErrPreconditionFailed) {
			return nil, fmt.Errorf("failed to move order %s to %s: %w", order.ID, change.To, err)
		}
		// Another request moved the order first.
		current, getErr := s.orders.GetByID(ctx, order.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == change.To {
			return current, nil
		}
		return nil, &TransitionError{From: current.Status, To: change.To}
	}
	log.Printf("Order %s moved from %s to %s", order.OrderNumber, change.From, change.To)

	updated, err := s.orders.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.publish(EventOrderStatusChanged, orderEvent(updated, change.From, change.Event.Message, now))
	return updated, nil
}

// restockItems reverses the checkout decrement of every item and returns the
// items it restocked. Variants deleted since the order was placed are skipped.
// On failure the items already restocked are taken back.
func (s *OrderService) restockItems(ctx context.Context, items []models.OrderItem) ([]models.OrderItem, error) {
	restocked := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		_, err := s.inventory.Restock(ctx, item.VariantID, item.Quantity)
		if err == nil {
			restocked = append(restocked, item)
			continue
		}
		if errors.Is(err, repositories.ErrNotFound) {
			log.Printf("Skipping restock of deleted variant %s", item.VariantID)
			continue
		}
		s.takeBackStock(ctx, restocked)
		return nil, fmt.Errorf("failed to restock variant %s: %w", item.VariantID, err)
	}
	return restocked, nil
}

// takeBackStock undoes restockItems. It runs even when ctx is cancelled.
func (s *OrderService) takeBackStock(ctx context.Context, items []models.OrderItem) {
	ctx = context.WithoutCancel(ctx)
	for _, item := range items {
		if err := s.inventory.Decrement(ctx, item.VariantID, item.Quantity); err != nil {
			logInvariant(fmt.Errorf("variant %s keeps %d units it should have given back: %w", item.VariantID, item.Quantity, err))
		}
	}
}

// RecordPayment marks an order paid or failed. Refunds go through RefundOrder.
func (s *OrderService) RecordPayment(ctx context.Context, id string, status models.PaymentStatus) (*models.Order, error) {
	if status != models.PaymentPaid && status != models.PaymentFailed {
		return nil, fmt.Errorf("%w: payment status must be paid or failed, got %q", ErrInvalidInput, status)
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == status {
		return order, nil
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order %s is %s", ErrOrderImmutable, order.OrderNumber, order.Status)
	}
	if err := s.orders.UpdatePaymentStatus(ctx, id, order.Status, status); err != nil {
		if !errors.Is(err, repositories.ErrPreconditionFailed) {
			return nil, fmt.Errorf("failed to record payment for order %s: %w", id, err)
		}
		current, getErr := s.orders.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: order %s is %s", ErrOrderImmutable, current.OrderNumber, current.Status)
		}
		return nil, fmt.Errorf("failed to record payment for order %s: %w", id, err)
	}
	return s.orders.GetByID(ctx, id)
}

// AddNote appends an internal note. Notes are never edited or removed.
func (s *OrderService) AddNote(ctx context.Context, id string, body string) (*models.Order, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: note must not be empty", ErrInvalidInput)
	}
	note := &models.OrderNote{Body: body, CreatedAt: s.now()}
	if err := s.orders.AppendNote(ctx, id, note); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, id)
}

func orderEvent(o *models.Order, previous models.OrderStatus, message string, at time.Time) OrderEvent {
	return OrderEvent{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		CustomerID:     o.CustomerID,
		Status:         o.Status,
		PreviousStatus: previous,
		PaymentStatus:  o.PaymentStatus,
		Total:          o.Total,
		Message:        message,
		OccurredAt:     at,
	}
}

func (s *OrderService) publish(routingKey string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}

// alertLowStock publishes inventory.low_stock for products a checkout left low or empty.
func (s *OrderService) alertLowStock(ctx context.Context, products map[string]models.Product, now time.Time) {
	if s.publisher == nil || len(products) == 0 {
		return
	}
	list := make([]models.Product, 0, len(products))
	for _, p := range products {
		list = append(list, p)
	}
	levels, err := s.inventory.StockLevels(ctx, list)
	if err != nil {
		log.Printf("Warning: failed to check stock levels after checkout: %v", err)
		return
	}
	for _, p := range list {
		level := levels[p.ID]
		if level.Status == models.StockInStock {
			continue
		}
		s.publish(EventInventoryLowStock, LowStockEvent{
			ProductID:   p.ID,
			ProductName: p.Name,
			TotalStock:  level.TotalStock,
			Status:      level.Status,
			OccurredAt:  now,
		})
	}
}
