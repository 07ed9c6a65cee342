package enums

import "fmt"

// OrderStatus tracks the fulfillment lifecycle of a laundry order.
type OrderStatus string

const (
	OrderStatusCreated                OrderStatus = "created"
	OrderStatusAwaitingPickupCustomer OrderStatus = "awaiting_pickup_customer"
	OrderStatusInTransitToFacility    OrderStatus = "in_transit_to_facility"
	OrderStatusArrivedAtFacility      OrderStatus = "arrived_at_facility"
	OrderStatusPendingItemConfirm     OrderStatus = "pending_item_confirmation"
	OrderStatusProcessing             OrderStatus = "processing"
	OrderStatusReadyForDelivery       OrderStatus = "ready_for_delivery"
	OrderStatusInTransitToCustomer    OrderStatus = "in_transit_to_customer"
	OrderStatusDelivered              OrderStatus = "delivered"
	OrderStatusCancelled              OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusAwaitingPickupCustomer,
	OrderStatusInTransitToFacility,
	OrderStatusArrivedAtFacility,
	OrderStatusPendingItemConfirm,
	OrderStatusProcessing,
	OrderStatusReadyForDelivery,
	OrderStatusInTransitToCustomer,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// orderStatusSuccessors is the single source of truth for the order state
// machine; every status mutation in the codebase is checked against it.
var orderStatusSuccessors = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:                {OrderStatusAwaitingPickupCustomer, OrderStatusCancelled},
	OrderStatusAwaitingPickupCustomer: {OrderStatusInTransitToFacility, OrderStatusCancelled},
	OrderStatusInTransitToFacility:    {OrderStatusArrivedAtFacility},
	OrderStatusArrivedAtFacility:      {OrderStatusPendingItemConfirm, OrderStatusProcessing},
	OrderStatusPendingItemConfirm:     {OrderStatusProcessing},
	OrderStatusProcessing:             {OrderStatusReadyForDelivery},
	OrderStatusReadyForDelivery:       {OrderStatusInTransitToCustomer},
	OrderStatusInTransitToCustomer:    {OrderStatusDelivered},
	OrderStatusDelivered:              {},
	OrderStatusCancelled:              {},
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the order lifecycle.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusDelivered || o == OrderStatusCancelled
}

// CanTransitionTo reports whether target is a direct successor of the status.
func (o OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, candidate := range orderStatusSuccessors[o] {
		if candidate == target {
			return true
		}
	}
	return false
}

// Successors returns the direct successors of the status.
func (o OrderStatus) Successors() []OrderStatus {
	next := orderStatusSuccessors[o]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
