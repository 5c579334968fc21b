package services_test

import (
	"testing"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.StatusPending, models.StatusConfirmed, true},
		{models.StatusPending, models.StatusShipped, true},
		{models.StatusPending, models.StatusDelivered, true},
		{models.StatusConfirmed, models.StatusProcessing, true},
		{models.StatusShipped, models.StatusOutForDelivery, true},
		{models.StatusOutForDelivery, models.StatusDelivered, true},
		{models.StatusDelivered, models.StatusReturned, true},

		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusConfirmed, models.StatusCancelled, true},
		{models.StatusProcessing, models.StatusCancelled, true},
		{models.StatusShipped, models.StatusCancelled, false},
		{models.StatusOutForDelivery, models.StatusCancelled, false},
		{models.StatusDelivered, models.StatusCancelled, false},

		{models.StatusShipped, models.StatusProcessing, false},
		{models.StatusDelivered, models.StatusPending, false},
		{models.StatusShipped, models.StatusShipped, false},
		{models.StatusPending, models.StatusReturned, false},
		{models.StatusShipped, models.StatusReturned, false},

		{models.StatusDelivered, models.StatusRefunded, false},
		{models.StatusCancelled, models.StatusPending, false},
		{models.StatusRefunded, models.StatusReturned, false},
		{models.StatusReturned, models.StatusRefunded, false},
		{models.StatusReturned, models.StatusDelivered, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, services.CanTransition(tt.from, tt.to))
		})
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	for _, s := range []models.OrderStatus{models.StatusCancelled, models.StatusRefunded, models.StatusReturned} {
		assert.True(t, s.IsTerminal(), s)
	}
	for _, s := range []models.OrderStatus{models.StatusPending, models.StatusShipped, models.StatusDelivered} {
		assert.False(t, s.IsTerminal(), s)
	}
	assert.False(t, models.OrderStatus("lost").IsValid())
}
