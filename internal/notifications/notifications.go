package notifications

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"storefront/internal/models"
	"storefront/internal/services"

	amqp "github.com/streadway/amqp"
)

// Audience is who a notice is meant for.
type Audience string

const (
	AudienceCustomer Audience = "customer"
	AudienceStaff    Audience = "staff"
)

// Notice is a message rendered from a storefront event.
type Notice struct {
	Audience  Audience
	Recipient string
	Subject   string
	Body      string
}

var customerSubjects = map[models.OrderStatus]string{
	models.StatusConfirmed:      "Your order %s is confirmed",
	models.StatusProcessing:     "Your order %s is being prepared",
	models.StatusShipped:        "Your order %s has shipped",
	models.StatusOutForDelivery: "Your order %s is out for delivery",
	models.StatusDelivered:      "Your order %s was delivered",
	models.StatusCancelled:      "Your order %s was cancelled",
	models.StatusReturned:       "We received the return of order %s",
	models.StatusRefunded:       "Your order %s was refunded",
}

// Render turns an event body published under routingKey into a notice.
func Render(routingKey string, body []byte) (Notice, error) {
	switch routingKey {
	case services.EventOrderCreated:
		var e services.OrderEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return Notice{}, fmt.Errorf("failed to decode %s: %w", routingKey, err)
		}
		return Notice{
			Audience:  AudienceCustomer,
			Recipient: e.CustomerID,
			Subject:   fmt.Sprintf("Thanks for your order %s", e.OrderNumber),
			Body:      fmt.Sprintf("We received your order %s. Total: %s.", e.OrderNumber, e.Total.StringFixed(2)),
		}, nil

	case services.EventOrderStatusChanged:
		var e services.OrderEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return Notice{}, fmt.Errorf("failed to decode %s: %w", routingKey, err)
		}
		subject, ok := customerSubjects[e.Status]
		if !ok {
			return Notice{}, fmt.Errorf("no notice for order status %q", e.Status)
		}
		text := e.Message
		if text == "" {
			text = strings.ReplaceAll(string(e.Status), "_", " ")
		}
		return Notice{
			Audience:  AudienceCustomer,
			Recipient: e.CustomerID,
			Subject:   fmt.Sprintf(subject, e.OrderNumber),
			Body:      text,
		}, nil

	case services.EventInventoryLowStock:
		var e services.LowStockEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return Notice{}, fmt.Errorf("failed to decode %s: %w", routingKey, err)
		}
		subject := fmt.Sprintf("Low stock: %s", e.ProductName)
		if e.Status == models.StockOutOfStock {
			subject = fmt.Sprintf("Sold out: %s", e.ProductName)
		}
		return Notice{
			Audience:  AudienceStaff,
			Recipient: "inventory",
			Subject:   subject,
			Body:      fmt.Sprintf("%s has %d units left across all variants.", e.ProductName, e.TotalStock),
		}, nil
	}
	return Notice{}, fmt.Errorf("unknown routing key %q", routingKey)
}

// Handler delivers rendered notices. Without a sender, notices are logged.
type Handler struct {
	send func(Notice) error
}

// NewHandler creates a Handler. send may be nil.
func NewHandler(send func(Notice) error) *Handler {
	if send == nil {
		send = logNotice
	}
	return &Handler{send: send}
}

func logNotice(n Notice) error {
	log.Printf("Notify %s %s: %s | %s", n.Audience, n.Recipient, n.Subject, n.Body)
	return nil
}

// HandleDelivery is the consumer callback for the notifications queue.
func (h *Handler) HandleDelivery(msg amqp.Delivery) error {
	notice, err := Render(msg.RoutingKey, msg.Body)
	if err != nil {
		return err
	}
	return h.send(notice)
}
