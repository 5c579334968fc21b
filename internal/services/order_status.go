package services

import "storefront/internal/models"

// fulfillmentPath is the forward order of statuses. Any later status may be
// reached directly from an earlier one.
var fulfillmentPath = []models.OrderStatus{
	models.StatusPending,
	models.StatusConfirmed,
	models.StatusProcessing,
	models.StatusShipped,
	models.StatusOutForDelivery,
	models.StatusDelivered,
	models.StatusReturned,
}

var defaultMessages = map[models.OrderStatus]string{
	models.StatusPending:        "Order placed",
	models.StatusConfirmed:      "Order confirmed",
	models.StatusProcessing:     "Order is being prepared",
	models.StatusShipped:        "Order shipped",
	models.StatusOutForDelivery: "Order is out for delivery",
	models.StatusDelivered:      "Order delivered",
	models.StatusReturned:       "Order returned",
	models.StatusCancelled:      "Order cancelled",
	models.StatusRefunded:       "Payment refunded",
}

func pathIndex(s models.OrderStatus) int {
	for i, p := range fulfillmentPath {
		if p == s {
			return i
		}
	}
	return -1
}

// restocksOnEntry reports whether entering s gives the ordered units back to inventory.
func restocksOnEntry(s models.OrderStatus) bool {
	return s == models.StatusCancelled || s == models.StatusReturned
}

// CanTransition reports whether an order in from may move to to through the
// status machine. Refunds go through the payment path and are never accepted here.
// Re-applying the current status is handled by the caller as a no-op.
func CanTransition(from, to models.OrderStatus) bool {
	if from.IsTerminal() || from == to {
		return false
	}
	switch to {
	case models.StatusCancelled:
		return from == models.StatusPending || from == models.StatusConfirmed || from == models.StatusProcessing
	case models.StatusRefunded:
		return false
	case models.StatusReturned:
		return from == models.StatusDelivered
	}
	fi, ti := pathIndex(from), pathIndex(to)
	return fi >= 0 && ti > fi
}

func messageOrDefault(msg string, status models.OrderStatus) string {
	if msg != "" {
		return msg
	}
	return defaultMessages[status]
}
