package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateDiscrepancy  OutboxAggregateType = "discrepancy"
	AggregateQuote        OutboxAggregateType = "quote"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateDiscrepancy,
	AggregateQuote,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated         OutboxEventType = "order_created"
	EventOrderStateChanged    OutboxEventType = "order_state_changed"
	EventOrderCancelled       OutboxEventType = "order_cancelled"
	EventScanRecorded         OutboxEventType = "scan_recorded"
	EventDeliveryConfirmed    OutboxEventType = "delivery_confirmed"
	EventDiscrepancyReported  OutboxEventType = "discrepancy_reported"
	EventDiscrepancyDecided   OutboxEventType = "discrepancy_decided"
	EventDiscrepancyReconcile OutboxEventType = "discrepancy_reconciled"
	EventQuoteRequested       OutboxEventType = "quote_requested"
	EventQuotePriced          OutboxEventType = "quote_priced"
	EventQuoteAccepted        OutboxEventType = "quote_accepted"
	EventQuoteDeclined        OutboxEventType = "quote_declined"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStateChanged,
	EventOrderCancelled,
	EventScanRecorded,
	EventDeliveryConfirmed,
	EventDiscrepancyReported,
	EventDiscrepancyDecided,
	EventDiscrepancyReconcile,
	EventQuoteRequested,
	EventQuotePriced,
	EventQuoteAccepted,
	EventQuoteDeclined,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
