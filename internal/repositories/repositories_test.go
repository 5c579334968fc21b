package repositories_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stores struct {
	products repositories.ProductRepository
	variants repositories.VariantRepository
	coupons  repositories.CouponRepository
	orders   repositories.OrderRepository
	users    repositories.UserRepository
}

func memoryStores() stores {
	return stores{
		products: repositories.NewMemoryProductRepository(),
		variants: repositories.NewMemoryVariantRepository(),
		coupons:  repositories.NewMemoryCouponRepository(),
		orders:   repositories.NewMemoryOrderRepository(),
		users:    repositories.NewMemoryUserRepository(),
	}
}

func sqliteStores(t *testing.T) stores {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	return stores{
		products: repositories.NewGORMProductRepository(db),
		variants: repositories.NewGORMVariantRepository(db),
		coupons:  repositories.NewGORMCouponRepository(db),
		orders:   repositories.NewGORMOrderRepository(db),
		users:    repositories.NewGORMUserRepository(db),
	}
}

// forEachStore runs fn against every repository implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s stores)) {
	t.Run("memory", func(t *testing.T) { fn(t, memoryStores()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, sqliteStores(t)) })
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, money(want).Equal(got), "want %s, got %s", want, got)
}

func createProduct(t *testing.T, s stores, name, category string, active bool) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: money("25.50"), Category: category, IsActive: active}
	require.NoError(t, s.products.Create(context.Background(), &p))
	return p
}

func createVariant(t *testing.T, s stores, productID, sku string, stock int) models.Variant {
	t.Helper()
	v := models.Variant{ProductID: productID, SKU: sku, StockQuantity: stock}
	require.NoError(t, s.variants.Create(context.Background(), &v))
	return v
}

func TestProductRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		hoodie := createProduct(t, s, "Hoodie", "apparel", true)
		createProduct(t, s, "Beanie", "apparel", false)
		createProduct(t, s, "Mug", "home", true)

		all, err := s.products.GetAll(ctx, repositories.ProductFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"Beanie", "Hoodie", "Mug"}, []string{all[0].Name, all[1].Name, all[2].Name})

		active, err := s.products.GetAll(ctx, repositories.ProductFilter{Category: "apparel", ActiveOnly: true})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, hoodie.ID, active[0].ID)

		found, err := s.products.GetAll(ctx, repositories.ProductFilter{Search: "HOOD"})
		require.NoError(t, err)
		require.Len(t, found, 1)

		got, err := s.products.GetByID(ctx, hoodie.ID)
		require.NoError(t, err)
		assertMoney(t, "25.50", got.Price)
		assert.False(t, got.CompareAtPrice.Valid)

		got.IsActive = false
		got.CompareAtPrice = decimal.NewNullDecimal(money("30"))
		require.NoError(t, s.products.Update(ctx, got))
		updated, err := s.products.GetByID(ctx, hoodie.ID)
		require.NoError(t, err)
		assert.False(t, updated.IsActive)
		require.True(t, updated.CompareAtPrice.Valid)
		assertMoney(t, "30", updated.CompareAtPrice.Decimal)

		err = s.products.Update(ctx, &models.Product{ID: "missing", Name: "Ghost", Price: money("1")})
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		require.NoError(t, s.products.Delete(ctx, hoodie.ID))
		_, err = s.products.GetByID(ctx, hoodie.ID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		assert.ErrorIs(t, s.products.Delete(ctx, hoodie.ID), repositories.ErrNotFound)
	})
}

func TestVariantRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		hoodie := createProduct(t, s, "Hoodie", "apparel", true)
		mug := createProduct(t, s, "Mug", "home", true)
		small := createVariant(t, s, hoodie.ID, "H-S", 5)
		createVariant(t, s, hoodie.ID, "H-M", 0)
		createVariant(t, s, mug.ID, "M-1", 12)

		list, err := s.variants.ListByProductIDs(ctx, []string{hoodie.ID})
		require.NoError(t, err)
		assert.Len(t, list, 2)
		for _, v := range list {
			assert.Equal(t, hoodie.ID, v.ProductID)
		}

		both, err := s.variants.ListByProductIDs(ctx, []string{hoodie.ID, mug.ID})
		require.NoError(t, err)
		assert.Len(t, both, 3)

		none, err := s.variants.ListByProductIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, none)

		v, err := s.variants.AdjustStock(ctx, small.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 8, v.StockQuantity)

		v, err = s.variants.AdjustStock(ctx, small.ID, -8)
		require.NoError(t, err)
		assert.Equal(t, 0, v.StockQuantity)

		_, err = s.variants.AdjustStock(ctx, small.ID, -1)
		assert.ErrorIs(t, err, repositories.ErrPreconditionFailed)
		stored, err := s.variants.GetByID(ctx, small.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.StockQuantity)

		_, err = s.variants.AdjustStock(ctx, "missing", 1)
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		require.NoError(t, s.variants.DeleteByProductID(ctx, hoodie.ID))
		list, err = s.variants.ListByProductIDs(ctx, []string{hoodie.ID, mug.ID})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestVariantRepository_ConcurrentAdjustments(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		product := createProduct(t, s, "Hoodie", "apparel", true)
		variant := createVariant(t, s, product.ID, "H-S", 10)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			took int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.variants.AdjustStock(ctx, variant.ID, -1); err == nil {
					mu.Lock()
					took++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, took)
		stored, err := s.variants.GetByID(ctx, variant.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.StockQuantity)
	})
}

func TestCouponRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		limit := 2
		coupon := models.Coupon{
			Code:          "SPRING",
			DiscountType:  models.DiscountFixed,
			DiscountValue: money("10"),
			UsageLimit:    &limit,
			IsActive:      true,
		}
		require.NoError(t, s.coupons.Create(ctx, &coupon))

		dup := models.Coupon{Code: "SPRING", DiscountType: models.DiscountFixed, DiscountValue: money("5")}
		assert.ErrorIs(t, s.coupons.Create(ctx, &dup), repositories.ErrDuplicate)

		require.NoError(t, s.coupons.Redeem(ctx, coupon.ID))
		require.NoError(t, s.coupons.Redeem(ctx, coupon.ID))
		assert.ErrorIs(t, s.coupons.Redeem(ctx, coupon.ID), repositories.ErrPreconditionFailed)

		stored, err := s.coupons.GetByCode(ctx, "SPRING")
		require.NoError(t, err)
		assert.Equal(t, 2, stored.UsageCount)

		require.NoError(t, s.coupons.Release(ctx, coupon.ID))
		require.NoError(t, s.coupons.Release(ctx, coupon.ID))
		assert.ErrorIs(t, s.coupons.Release(ctx, coupon.ID), repositories.ErrPreconditionFailed)

		assert.ErrorIs(t, s.coupons.Redeem(ctx, "missing"), repositories.ErrNotFound)
		_, err = s.coupons.GetByCode(ctx, "NOPE")
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		off, err := s.coupons.SetActive(ctx, "SPRING", false)
		require.NoError(t, err)
		assert.False(t, off.IsActive)
		_, err = s.coupons.SetActive(ctx, "NOPE", true)
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		unlimited := models.Coupon{Code: "FOREVER", DiscountType: models.DiscountPercentage, DiscountValue: money("5"), IsActive: true}
		require.NoError(t, s.coupons.Create(ctx, &unlimited))
		for i := 0; i < 5; i++ {
			require.NoError(t, s.coupons.Redeem(ctx, unlimited.ID))
		}

		all, err := s.coupons.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestCouponRepository_ConcurrentRedeem(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		limit := 1
		coupon := models.Coupon{Code: "LAST", DiscountType: models.DiscountFixed, DiscountValue: money("10"), UsageLimit: &limit, IsActive: true}
		require.NoError(t, s.coupons.Create(ctx, &coupon))

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.coupons.Redeem(ctx, coupon.ID); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})
}

func newOrder(number, customer string, at time.Time) *models.Order {
	return &models.Order{
		OrderNumber:   number,
		CustomerID:    customer,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
		Subtotal:      money("51"),
		Discount:      money("0"),
		ShippingCost:  money("50"),
		Tax:           money("9.18"),
		Total:         money("110.18"),
		ShippingAddress: models.ShippingAddress{
			FullName: "Ada Lovelace", Phone: "555", Line1: "12 Analytical St",
			City: "London", State: "LDN", PostalCode: "N1", Country: "GB",
		},
		Items: []models.OrderItem{{
			ProductID:   "p1",
			VariantID:   "v1",
			ProductName: "Hoodie",
			UnitPrice:   money("25.50"),
			Quantity:    2,
			Total:       money("51"),
		}},
		Events:    []models.OrderTrackingEvent{{Status: models.StatusPending, Message: "Order placed", CreatedAt: at}},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestOrderRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

		first := newOrder("ORD-1", "alice", base)
		require.NoError(t, s.orders.Create(ctx, first))
		second := newOrder("ORD-2", "bob", base.Add(time.Hour))
		require.NoError(t, s.orders.Create(ctx, second))

		assert.ErrorIs(t, s.orders.Create(ctx, newOrder("ORD-1", "carol", base)), repositories.ErrDuplicate)

		got, err := s.orders.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "ORD-1", got.OrderNumber)
		assert.Equal(t, "London", got.ShippingAddress.City)
		require.Len(t, got.Items, 1)
		assert.Equal(t, first.ID, got.Items[0].OrderID)
		assertMoney(t, "110.18", got.Total)
		require.Len(t, got.Events, 1)

		all, err := s.orders.GetAll(ctx, repositories.OrderFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "ORD-2", all[0].OrderNumber, "newest first")

		mine, err := s.orders.GetAll(ctx, repositories.OrderFilter{CustomerID: "alice"})
		require.NoError(t, err)
		require.Len(t, mine, 1)

		err = s.orders.UpdateStatus(ctx, first.ID, repositories.StatusChange{
			From:  models.StatusPending,
			To:    models.StatusShipped,
			Event: models.OrderTrackingEvent{Status: models.StatusShipped, Message: "Order shipped", CreatedAt: base.Add(2 * time.Hour)},
		})
		require.NoError(t, err)

		err = s.orders.UpdateStatus(ctx, first.ID, repositories.StatusChange{
			From:  models.StatusPending,
			To:    models.StatusCancelled,
			Event: models.OrderTrackingEvent{Status: models.StatusCancelled},
		})
		assert.ErrorIs(t, err, repositories.ErrPreconditionFailed)

		err = s.orders.UpdateStatus(ctx, "missing", repositories.StatusChange{From: models.StatusPending, To: models.StatusConfirmed})
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		err = s.orders.UpdateStatus(ctx, first.ID, repositories.StatusChange{
			From:          models.StatusShipped,
			To:            models.StatusRefunded,
			PaymentStatus: models.PaymentRefunded,
			Event:         models.OrderTrackingEvent{Status: models.StatusRefunded, Message: "Payment refunded"},
		})
		require.NoError(t, err)

		got, err = s.orders.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRefunded, got.Status)
		assert.Equal(t, models.PaymentRefunded, got.PaymentStatus)
		require.Len(t, got.Events, 3)
		assert.Equal(t, []models.OrderStatus{models.StatusPending, models.StatusShipped, models.StatusRefunded},
			[]models.OrderStatus{got.Events[0].Status, got.Events[1].Status, got.Events[2].Status})

		pending, err := s.orders.GetAll(ctx, repositories.OrderFilter{Status: models.StatusPending})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "ORD-2", pending[0].OrderNumber)

		require.NoError(t, s.orders.UpdatePaymentStatus(ctx, second.ID, models.StatusPending, models.PaymentPaid))
		got, err = s.orders.GetByID(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
		assert.ErrorIs(t, s.orders.UpdatePaymentStatus(ctx, "missing", models.StatusPending, models.PaymentPaid), repositories.ErrNotFound)

		// A refund that landed after the caller read the order wins.
		err = s.orders.UpdatePaymentStatus(ctx, first.ID, models.StatusDelivered, models.PaymentPaid)
		assert.ErrorIs(t, err, repositories.ErrPreconditionFailed)
		got, err = s.orders.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentRefunded, got.PaymentStatus)

		require.NoError(t, s.orders.AppendNote(ctx, second.ID, &models.OrderNote{Body: "first"}))
		require.NoError(t, s.orders.AppendNote(ctx, second.ID, &models.OrderNote{Body: "second\nline"}))
		assert.ErrorIs(t, s.orders.AppendNote(ctx, "missing", &models.OrderNote{Body: "x"}), repositories.ErrNotFound)

		got, err = s.orders.GetByID(ctx, second.ID)
		require.NoError(t, err)
		require.Len(t, got.Notes, 2)
		assert.Equal(t, "first", got.Notes[0].Body)
		assert.Equal(t, "second\nline", got.Notes[1].Body)

		_, err = s.orders.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestOrderRepository_ConcurrentStatusChange(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		order := newOrder("ORD-RACE", "alice", time.Now())
		require.NoError(t, s.orders.Create(ctx, order))

		targets := []models.OrderStatus{models.StatusConfirmed, models.StatusCancelled, models.StatusShipped, models.StatusProcessing}
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for _, to := range targets {
			wg.Add(1)
			go func(to models.OrderStatus) {
				defer wg.Done()
				err := s.orders.UpdateStatus(ctx, order.ID, repositories.StatusChange{
					From:  models.StatusPending,
					To:    to,
					Event: models.OrderTrackingEvent{Status: to},
				})
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}(to)
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		got, err := s.orders.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Len(t, got.Events, 2)
	})
}

func TestUserRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		user := models.User{Username: "ada", Email: "ada@example.com", Password: "hash", Role: models.RoleCustomer}
		require.NoError(t, s.users.Create(ctx, &user))
		assert.NotEmpty(t, user.ID)

		byName, err := s.users.GetByUsername(ctx, "ada")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)

		byEmail, err := s.users.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		byID, err := s.users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "ada", byID.Username)

		dup := models.User{Username: "ada", Email: "other@example.com", Password: "hash", Role: models.RoleCustomer}
		assert.ErrorIs(t, s.users.Create(ctx, &dup), repositories.ErrDuplicate)

		_, err = s.users.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}
