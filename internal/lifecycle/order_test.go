package lifecycle

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careconnect-server/internal/models"
)

func TestOrderTransitionFor(t *testing.T) {
	tests := []struct {
		name    string
		from    models.OrderStatus
		to      models.OrderStatus
		actor   models.Role
		wantErr bool
	}{
		{"pending to preparing", models.OrderPending, models.OrderPreparing, models.RolePharmacy, false},
		{"pending to cancelled", models.OrderPending, models.OrderCancelled, models.RolePharmacy, false},
		{"preparing to out for delivery", models.OrderPreparing, models.OrderOutForDelivery, models.RolePharmacy, false},
		{"out for delivery to delivered", models.OrderOutForDelivery, models.OrderDelivered, models.RolePharmacy, false},
		{"no skipping preparing", models.OrderPending, models.OrderOutForDelivery, models.RolePharmacy, true},
		{"no skipping to delivered", models.OrderPending, models.OrderDelivered, models.RolePharmacy, true},
		{"preparing cannot be cancelled", models.OrderPreparing, models.OrderCancelled, models.RolePharmacy, true},
		{"delivered is terminal", models.OrderDelivered, models.OrderPending, models.RolePharmacy, true},
		{"cancelled is terminal", models.OrderCancelled, models.OrderPreparing, models.RolePharmacy, true},
		{"patient cannot drive orders", models.OrderPending, models.OrderPreparing, models.RolePatient, true},
		{"doctor cannot drive orders", models.OrderPending, models.OrderCancelled, models.RoleDoctor, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := OrderTransitionFor(tt.from, tt.to, tt.actor)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.from, tr.From)
			assert.Equal(t, tt.to, tr.To)
		})
	}
}

func TestOnlyDeliveredDecrementsStock(t *testing.T) {
	for _, tr := range orderTransitions {
		if tr.To == models.OrderDelivered {
			assert.True(t, tr.DecrementsStock)
		} else {
			assert.False(t, tr.DecrementsStock)
		}
	}
}

func TestOrderTerminal(t *testing.T) {
	assert.False(t, OrderTerminal(models.OrderPending))
	assert.False(t, OrderTerminal(models.OrderPreparing))
	assert.False(t, OrderTerminal(models.OrderOutForDelivery))
	assert.True(t, OrderTerminal(models.OrderDelivered))
	assert.True(t, OrderTerminal(models.OrderCancelled))
}

func TestComputeOrderTotal(t *testing.T) {
	fee := decimal.RequireFromString("2.99")
	items := []models.OrderItem{
		{Price: decimal.RequireFromString("5.00"), Quantity: 2},
		{Price: decimal.RequireFromString("2.50"), Quantity: 1},
	}

	// 12.50 plus the delivery fee.
	total := ComputeOrderTotal(items, models.DeliveryMethodDelivery, fee)
	assert.True(t, total.Equal(decimal.RequireFromString("15.49")), "got %s", total)

	// Pickup pays no fee.
	total = ComputeOrderTotal(items, models.DeliveryMethodPickup, fee)
	assert.True(t, total.Equal(decimal.RequireFromString("12.50")), "got %s", total)

	// Empty pickup order totals zero.
	total = ComputeOrderTotal(nil, models.DeliveryMethodPickup, fee)
	assert.True(t, total.IsZero())
}

func TestNextStock(t *testing.T) {
	assert.Equal(t, 2, NextStock(5, 3))
	assert.Equal(t, 0, NextStock(5, 5))
	assert.Equal(t, 0, NextStock(2, 5), "oversold decrement clamps at zero")
	assert.Equal(t, 7, NextStock(7, 0))
}
