package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/davidkorte/freshpress-backend/pkg/db/models"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
	"github.com/davidkorte/freshpress-backend/pkg/logger"
	"github.com/davidkorte/freshpress-backend/pkg/outbox"
	"github.com/davidkorte/freshpress-backend/pkg/outbox/idempotency"
	"github.com/davidkorte/freshpress-backend/pkg/outbox/payloads"
	"github.com/davidkorte/freshpress-backend/pkg/outbox/registry"
)

const (
	customerNotificationConsumer = "customer-notifications"
	payloadVersion               = 1
)

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and turns them into in-app notifications for
// the affected customer.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds a customer notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	c := &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		decoders:     registry.NewDecoderRegistry(),
		logg:         logg,
	}
	c.registerDecoders()
	return c, nil
}

// registerDecoders lists the events customers hear about. Everything else on
// the domain topic (scans, quote requests) is acked and skipped.
func (c *Consumer) registerDecoders() {
	register := func(eventType enums.OutboxEventType, build func() interface{}) {
		c.decoders.Register(eventType, payloadVersion, func(data json.RawMessage) (interface{}, error) {
			payload := build()
			if err := json.Unmarshal(data, payload); err != nil {
				return nil, err
			}
			return payload, nil
		})
	}
	register(enums.EventOrderStateChanged, func() interface{} { return &payloads.OrderStateChangedEvent{} })
	register(enums.EventOrderCancelled, func() interface{} { return &payloads.OrderCancelledEvent{} })
	register(enums.EventDeliveryConfirmed, func() interface{} { return &payloads.DeliveryConfirmedEvent{} })
	register(enums.EventDiscrepancyReported, func() interface{} { return &payloads.DiscrepancyReportedEvent{} })
	register(enums.EventDiscrepancyReconcile, func() interface{} { return &payloads.DiscrepancyReconciledEvent{} })
	register(enums.EventQuotePriced, func() interface{} { return &payloads.QuotePricedEvent{} })
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	if !c.decoders.Has(eventType, envelope.Version) {
		return processResult{ack: true}
	}

	decoded, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, customerNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.notify(ctx, decoded); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, customerNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "customer notified")
	return processResult{ack: true}
}

func (c *Consumer) notify(ctx context.Context, payload interface{}) error {
	switch p := payload.(type) {
	case *payloads.OrderStateChangedEvent:
		return c.handleOrderStateChanged(ctx, p)
	case *payloads.OrderCancelledEvent:
		return c.handleOrderCancelled(ctx, p)
	case *payloads.DeliveryConfirmedEvent:
		return c.handleDeliveryConfirmed(ctx, p)
	case *payloads.DiscrepancyReportedEvent:
		return c.handleDiscrepancyReported(ctx, p)
	case *payloads.DiscrepancyReconciledEvent:
		return c.handleDiscrepancyReconciled(ctx, p)
	case *payloads.QuotePricedEvent:
		return c.handleQuotePriced(ctx, p)
	default:
		return fmt.Errorf("no notification builder for %T", payload)
	}
}

func (c *Consumer) handleOrderStateChanged(ctx context.Context, payload *payloads.OrderStateChangedEvent) error {
	return c.create(ctx, &models.Notification{
		CustomerID: payload.CustomerID,
		Type:       enums.NotificationTypeOrderUpdate,
		Title:      "Order update",
		Message:    fmt.Sprintf("Your order is now %s.", statusLabel(payload.To)),
		Link:       stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	})
}

func (c *Consumer) handleOrderCancelled(ctx context.Context, payload *payloads.OrderCancelledEvent) error {
	message := "Your order has been cancelled."
	if payload.Reason != "" {
		message = fmt.Sprintf("Your order has been cancelled. Reason: %s", payload.Reason)
	}
	return c.create(ctx, &models.Notification{
		CustomerID: payload.CustomerID,
		Type:       enums.NotificationTypeOrderUpdate,
		Title:      "Order cancelled",
		Message:    message,
		Link:       stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	})
}

func (c *Consumer) handleDeliveryConfirmed(ctx context.Context, payload *payloads.DeliveryConfirmedEvent) error {
	return c.create(ctx, &models.Notification{
		CustomerID: payload.CustomerID,
		Type:       enums.NotificationTypeDeliveryConfirmation,
		Title:      "Order delivered",
		Message:    "Your laundry has been delivered. Thank you!",
		Link:       stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	})
}

func (c *Consumer) handleDiscrepancyReported(ctx context.Context, payload *payloads.DiscrepancyReportedEvent) error {
	return c.create(ctx, &models.Notification{
		CustomerID: payload.CustomerID,
		Type:       enums.NotificationTypeDiscrepancyAlert,
		Title:      "Action needed on your order",
		Message: fmt.Sprintf("We received %d of %q but expected %d. Please review and decide.",
			payload.FoundQty, payload.ItemName, payload.ExpectedQty),
		Link: stringPtr(fmt.Sprintf("/orders/%s/discrepancies", payload.OrderID)),
	})
}

func (c *Consumer) handleDiscrepancyReconciled(ctx context.Context, payload *payloads.DiscrepancyReconciledEvent) error {
	return c.create(ctx, &models.Notification{
		CustomerID: payload.CustomerID,
		Type:       enums.NotificationTypeOrderUpdate,
		Title:      "Order confirmed",
		Message:    fmt.Sprintf("All item checks are resolved. Your updated total is %s.", formatEUR(payload.TotalCents)),
		Link:       stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	})
}

func (c *Consumer) handleQuotePriced(ctx context.Context, payload *payloads.QuotePricedEvent) error {
	return c.create(ctx, &models.Notification{
		CustomerID: payload.CustomerID,
		Type:       enums.NotificationTypeQuoteUpdate,
		Title:      "Your quote is ready",
		Message:    fmt.Sprintf("We can do it for %s. Accept or decline whenever you are ready.", formatEUR(payload.QuotedPriceCents)),
		Link:       stringPtr(fmt.Sprintf("/quotes/%s", payload.QuoteID)),
	})
}

func (c *Consumer) create(ctx context.Context, notification *models.Notification) error {
	if notification.CustomerID == uuid.Nil {
		return fmt.Errorf("customer id missing")
	}
	return c.repo.Create(ctx, notification)
}

func statusLabel(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusAwaitingPickupCustomer:
		return "awaiting pickup"
	case enums.OrderStatusInTransitToFacility:
		return "on its way to our facility"
	case enums.OrderStatusArrivedAtFacility:
		return "at our facility"
	case enums.OrderStatusPendingItemConfirm:
		return "waiting for your item confirmation"
	case enums.OrderStatusProcessing:
		return "being cleaned"
	case enums.OrderStatusReadyForDelivery:
		return "ready for delivery"
	case enums.OrderStatusInTransitToCustomer:
		return "out for delivery"
	case enums.OrderStatusDelivered:
		return "delivered"
	default:
		return status.String()
	}
}

func formatEUR(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s€%d.%02d", sign, cents/100, cents%100)
}

func stringPtr(value string) *string {
	return &value
}
