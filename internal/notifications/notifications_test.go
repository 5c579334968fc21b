package notifications_test

import (
	"encoding/json"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/notifications"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestRender(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	created := services.OrderEvent{OrderNumber: "ORD-1", CustomerID: "c-1", Status: models.StatusPending, Total: decimal.RequireFromString("1227.2"), OccurredAt: at}
	notice, err := notifications.Render(services.EventOrderCreated, encode(t, created))
	require.NoError(t, err)
	assert.Equal(t, notifications.AudienceCustomer, notice.Audience)
	assert.Equal(t, "c-1", notice.Recipient)
	assert.Equal(t, "Thanks for your order ORD-1", notice.Subject)
	assert.Contains(t, notice.Body, "1227.20")

	shipped := services.OrderEvent{OrderNumber: "ORD-1", CustomerID: "c-1", Status: models.StatusShipped, PreviousStatus: models.StatusPending, Message: "Handed to courier"}
	notice, err = notifications.Render(services.EventOrderStatusChanged, encode(t, shipped))
	require.NoError(t, err)
	assert.Equal(t, "Your order ORD-1 has shipped", notice.Subject)
	assert.Equal(t, "Handed to courier", notice.Body)

	out := services.LowStockEvent{ProductName: "Hoodie", TotalStock: 0, Status: models.StockOutOfStock}
	notice, err = notifications.Render(services.EventInventoryLowStock, encode(t, out))
	require.NoError(t, err)
	assert.Equal(t, notifications.AudienceStaff, notice.Audience)
	assert.Equal(t, "Sold out: Hoodie", notice.Subject)

	low := services.LowStockEvent{ProductName: "Hoodie", TotalStock: 3, Status: models.StockLowStock}
	notice, err = notifications.Render(services.EventInventoryLowStock, encode(t, low))
	require.NoError(t, err)
	assert.Equal(t, "Low stock: Hoodie", notice.Subject)
	assert.Contains(t, notice.Body, "3 units")
}

func TestRender_Errors(t *testing.T) {
	_, err := notifications.Render("payment.settled", []byte(`{}`))
	assert.Error(t, err)

	_, err = notifications.Render(services.EventOrderCreated, []byte(`not json`))
	assert.Error(t, err)

	pending := services.OrderEvent{OrderNumber: "ORD-1", Status: models.StatusPending}
	_, err = notifications.Render(services.EventOrderStatusChanged, encode(t, pending))
	assert.Error(t, err)
}

func TestHandler_HandleDelivery(t *testing.T) {
	var sent []notifications.Notice
	h := notifications.NewHandler(func(n notifications.Notice) error {
		sent = append(sent, n)
		return nil
	})

	body := encode(t, services.OrderEvent{OrderNumber: "ORD-9", CustomerID: "c-9", Status: models.StatusCancelled})
	require.NoError(t, h.HandleDelivery(amqp.Delivery{RoutingKey: services.EventOrderStatusChanged, Body: body}))
	require.Len(t, sent, 1)
	assert.Equal(t, "Your order ORD-9 was cancelled", sent[0].Subject)
	assert.Equal(t, "cancelled", sent[0].Body)

	assert.Error(t, h.HandleDelivery(amqp.Delivery{RoutingKey: "unknown", Body: body}))
	assert.Len(t, sent, 1)

	assert.NoError(t, notifications.NewHandler(nil).HandleDelivery(amqp.Delivery{RoutingKey: services.EventOrderStatusChanged, Body: body}))
}
