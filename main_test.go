package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/models"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("JWT_SECRET", "test_jwt_secret")
	v.Set("ADMIN_PASSWORD", "admin-secret")
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, app.Close())
	})
	return app
}

func doJSON(t *testing.T, app *App, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Fiber.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"healthy"`)
	assert.Contains(t, string(body), `"store":"memory"`)
	assert.Contains(t, string(body), `"events":"disabled"`)
}

func TestSeededCatalogIsPublic(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, status)

	var products []struct {
		Name  string            `json:"name"`
		Stock models.StockLevel `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(body, &products))
	require.Len(t, products, 3)

	byName := make(map[string]models.StockLevel)
	for _, p := range products {
		byName[p.Name] = p.Stock
	}
	assert.Equal(t, models.StockLevel{TotalStock: 36, Status: models.StockInStock}, byName["Classic Oxford Shirt"])
	assert.Equal(t, models.StockLevel{TotalStock: 9, Status: models.StockLowStock}, byName["Slim Chino"])
	assert.Equal(t, models.StockLevel{TotalStock: 0, Status: models.StockOutOfStock}, byName["Canvas Tote"])
}

func TestRouteGuards(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/checkout", "", map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, status, "checkout needs a token")

	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/admin/inventory", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status, "admin routes need a token")

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "shopper",
		"email":    "shopper@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)
	customerToken, err := app.Auth.LoginUser(context.Background(), "shopper", "password123")
	require.NoError(t, err)

	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/admin/inventory", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, status, "customers are not administrators")

	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/orders/mine", customerToken, nil)
	assert.Equal(t, http.StatusOK, status)

	adminToken, err := app.Auth.LoginUser(context.Background(), "admin", "admin-secret")
	require.NoError(t, err)
	status, body := doJSON(t, app, http.MethodGet, "/api/v1/admin/inventory?status=out_of_stock", adminToken, nil)
	require.Equal(t, http.StatusOK, status)

	var items []models.InventoryItem
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Canvas Tote", items[0].Product.Name)
}

func TestDemoCouponIsSeeded(t *testing.T) {
	app := newTestApp(t)
	adminToken, err := app.Auth.LoginUser(context.Background(), "admin", "admin-secret")
	require.NoError(t, err)

	status, body := doJSON(t, app, http.MethodGet, "/api/v1/admin/coupons", adminToken, nil)
	require.Equal(t, http.StatusOK, status)

	var coupons []models.Coupon
	require.NoError(t, json.Unmarshal(body, &coupons))
	require.Len(t, coupons, 1)
	assert.Equal(t, "DEMO2026", coupons[0].Code)
}
