package lifecycle

import (
	"github.com/shopspring/decimal"

	"careconnect-server/internal/models"
)

// OrderTransition describes one permitted edge of the order state machine.
// Every edge is driven by the pharmacy; the delivered edge additionally
// triggers the inventory decrement.
type OrderTransition struct {
	From            models.OrderStatus
	To              models.OrderStatus
	DecrementsStock bool
	NotifyPatient   bool
}

var orderTransitions = []OrderTransition{
	{From: models.OrderPending, To: models.OrderPreparing, NotifyPatient: true},
	{From: models.OrderPending, To: models.OrderCancelled, NotifyPatient: true},
	{From: models.OrderPreparing, To: models.OrderOutForDelivery, NotifyPatient: true},
	{From: models.OrderOutForDelivery, To: models.OrderDelivered, DecrementsStock: true, NotifyPatient: true},
}

// OrderTerminal reports whether no further transition is permitted from s.
func OrderTerminal(s models.OrderStatus) bool {
	return s == models.OrderDelivered || s == models.OrderCancelled
}

// OrderTransitionFor looks up the transition for (from, to). Only the
// pharmacy that owns the order may drive it; any other actor or edge yields
// ErrInvalidTransition.
func OrderTransitionFor(from, to models.OrderStatus, actor models.Role) (OrderTransition, error) {
	if actor != models.RolePharmacy {
		return OrderTransition{}, ErrInvalidTransition
	}
	for _, t := range orderTransitions {
		if t.From == from && t.To == to {
			return t, nil
		}
	}
	return OrderTransition{}, ErrInvalidTransition
}

// ComputeOrderTotal sums price times quantity over the line items and adds
// the delivery fee when the delivery method is home delivery. Line item
// prices are the snapshots taken at checkout, never re-read from the
// catalog.
func ComputeOrderTotal(items []models.OrderItem, deliveryMethod string, deliveryFee decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Subtotal())
	}
	if deliveryMethod == models.DeliveryMethodDelivery {
		total = total.Add(deliveryFee)
	}
	return total
}

// NextStock computes the stock level after delivering qty units, clamped at
// zero so a re-triggered or oversold decrement never drives stock negative.
func NextStock(current, qty int) int {
	next := current - qty
	if next < 0 {
		return 0
	}
	return next
}
