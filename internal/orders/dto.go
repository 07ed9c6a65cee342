package orders

import (
	"time"

	"github.com/davidkorte/freshpress-backend/pkg/enums"
	"github.com/davidkorte/freshpress-backend/pkg/types"
	"github.com/google/uuid"
)

// OrderFilters describe the inputs supported by the customer orders list.
type OrderFilters struct {
	Status   *enums.OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// OrderItemInput carries a garment line at checkout.
type OrderItemInput struct {
	Name           string `json:"name" validate:"required"`
	Qty            int    `json:"qty" validate:"required,gt=0"`
	UnitPriceCents int    `json:"unit_price_cents" validate:"required,gte=0"`
}

// CreateOrderInput captures everything needed to open a new order.
type CreateOrderInput struct {
	CustomerID          uuid.UUID
	CustomerName        string
	CustomerPhone       *string
	CustomerEmail       *string
	PickupScheduledAt   *time.Time
	DeliveryScheduledAt *time.Time
	Services            *types.JSONMap
	Notes               *string
	Items               []OrderItemInput
}

// OrderSummary exposes the aggregated fields returned in the customer list.
type OrderSummary struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber int64             `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	TotalCents  int               `json:"total_cents"`
	Currency    string            `json:"currency"`
	TotalItems  int               `json:"total_items"`
	CreatedAt   time.Time         `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
