package payloads

import (
	"time"

	"github.com/davidkorte/freshpress-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent signals a new order entered the system.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	TotalCents  int       `json:"total_cents"`
}

// OrderStateChangedEvent is emitted on every order status transition.
type OrderStateChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
	Actor      string            `json:"actor,omitempty"`
}

// OrderCancelledEvent is emitted when a pre-pickup order is cancelled.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// ScanRecordedEvent reports a driver scan, successful or not.
type ScanRecordedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	Kind    enums.ScanKind    `json:"kind"`
	Outcome enums.ScanOutcome `json:"outcome"`
	AgentID uuid.UUID         `json:"agent_id"`
}

// DeliveryConfirmedEvent closes out the delivery flow with proof.
type DeliveryConfirmedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	AgentID     uuid.UUID `json:"agent_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// DiscrepancyReportedEvent alerts the customer an intake discrepancy needs a decision.
type DiscrepancyReportedEvent struct {
	DiscrepancyID uuid.UUID             `json:"discrepancy_id"`
	OrderID       uuid.UUID             `json:"order_id"`
	CustomerID    uuid.UUID             `json:"customer_id"`
	ItemName      string                `json:"item_name"`
	Kind          enums.DiscrepancyKind `json:"kind"`
	ExpectedQty   int                   `json:"expected_qty"`
	FoundQty      int                   `json:"found_qty"`
}

// DiscrepancyDecidedEvent records the customer decision on a discrepancy.
type DiscrepancyDecidedEvent struct {
	DiscrepancyID uuid.UUID                 `json:"discrepancy_id"`
	OrderID       uuid.UUID                 `json:"order_id"`
	Decision      enums.DiscrepancyDecision `json:"decision"`
	DecidedAt     time.Time                 `json:"decided_at"`
}

// DiscrepancyReconciledEvent fires once all discrepancies on an order are resolved.
type DiscrepancyReconciledEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	SubtotalCents int       `json:"subtotal_cents"`
	TotalCents    int       `json:"total_cents"`
}

// QuoteRequestedEvent signals a new bespoke quote awaiting pricing.
type QuoteRequestedEvent struct {
	QuoteID    uuid.UUID `json:"quote_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

// QuotePricedEvent carries the admin price back to the customer.
type QuotePricedEvent struct {
	QuoteID          uuid.UUID `json:"quote_id"`
	CustomerID       uuid.UUID `json:"customer_id"`
	QuotedPriceCents int       `json:"quoted_price_cents"`
}

// QuoteAcceptedEvent links the accepted quote to its generated order.
type QuoteAcceptedEvent struct {
	QuoteID    uuid.UUID `json:"quote_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	OrderID    uuid.UUID `json:"order_id"`
}

// QuoteDeclinedEvent reports a declined quote.
type QuoteDeclinedEvent struct {
	QuoteID    uuid.UUID `json:"quote_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	DeclinedBy string    `json:"declined_by,omitempty"`
}
