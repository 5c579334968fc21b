package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, money(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func intPtr(i int) *int { return &i }

func timePtr(t time.Time) *time.Time { return &t }

var testPricing = services.Pricing{
	Shipping: services.ShippingRule{FreeThreshold: money("500"), FlatRate: money("50")},
	Tax:      services.TaxRule{Rate: money("0.18")},
}

var testAddress = models.ShippingAddress{
	FullName:   "Ada Lovelace",
	Phone:      "+1 555 0100",
	Line1:      "12 Analytical St",
	City:       "London",
	State:      "LDN",
	PostalCode: "N1 9GU",
	Country:    "GB",
}

// recordingPublisher keeps every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []interface{}
}

func (p *recordingPublisher) Publish(routingKey string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, payload)
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type storeFixture struct {
	products  *repositories.MemoryProductRepository
	variants  *repositories.MemoryVariantRepository
	coupons   *repositories.MemoryCouponRepository
	orders    *repositories.MemoryOrderRepository
	inventory *services.InventoryService
	publisher *recordingPublisher
	svc       *services.OrderService
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	f := &storeFixture{
		products:  repositories.NewMemoryProductRepository(),
		variants:  repositories.NewMemoryVariantRepository(),
		coupons:   repositories.NewMemoryCouponRepository(),
		orders:    repositories.NewMemoryOrderRepository(),
		publisher: &recordingPublisher{},
	}
	f.inventory = services.NewInventoryService(f.products, f.variants, models.DefaultLowStockThreshold)
	f.svc = services.NewOrderService(f.orders, f.products, f.variants, f.coupons, f.inventory, f.publisher, testPricing).WithClock(clock)
	return f
}

// addProduct stores an active product with one variant per stock value.
func (f *storeFixture) addProduct(t *testing.T, name, price string, stocks ...int) (models.Product, []models.Variant) {
	t.Helper()
	ctx := context.Background()
	product := models.Product{Name: name, Price: money(price), Category: "apparel", IsActive: true}
	require.NoError(t, f.products.Create(ctx, &product))

	sizes := []string{"S", "M", "L", "XL"}
	variants := make([]models.Variant, 0, len(stocks))
	for i, stock := range stocks {
		v := models.Variant{ProductID: product.ID, SKU: name + "-" + sizes[i%len(sizes)], Size: sizes[i%len(sizes)], StockQuantity: stock}
		require.NoError(t, f.variants.Create(ctx, &v))
		variants = append(variants, v)
	}
	return product, variants
}

func (f *storeFixture) addCoupon(t *testing.T, c models.Coupon) models.Coupon {
	t.Helper()
	require.NoError(t, f.coupons.Create(context.Background(), &c))
	return c
}

func (f *storeFixture) stock(t *testing.T, variantID string) int {
	t.Helper()
	v, err := f.variants.GetByID(context.Background(), variantID)
	require.NoError(t, err)
	return v.StockQuantity
}

func (f *storeFixture) usage(t *testing.T, code string) int {
	t.Helper()
	c, err := f.coupons.GetByCode(context.Background(), code)
	require.NoError(t, err)
	return c.UsageCount
}

func (f *storeFixture) place(t *testing.T, coupon string, items ...services.CartItem) *models.Order {
	t.Helper()
	order, err := f.svc.PlaceOrder(context.Background(), services.PlaceOrderRequest{
		CustomerID:      "customer-1",
		Items:           items,
		ShippingAddress: testAddress,
		CouponCode:      coupon,
	})
	require.NoError(t, err)
	return order
}

func demoCoupon() models.Coupon {
	return models.Coupon{
		Code:              "DEMO2026",
		DiscountType:      models.DiscountPercentage,
		DiscountValue:     money("20"),
		MinPurchaseAmount: money("1000"),
		UsageLimit:        intPtr(100),
		IsActive:          true,
	}
}
