package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidkorte/freshpress-backend/internal/orders"
	"github.com/davidkorte/freshpress-backend/pkg/db/models"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
	pkgerrors "github.com/davidkorte/freshpress-backend/pkg/errors"
	"github.com/davidkorte/freshpress-backend/pkg/outbox"
	"github.com/davidkorte/freshpress-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ScanLog answers whether an order has a successful scan of a given kind.
// Implemented by the scans repository.
type ScanLog interface {
	WithTx(tx *gorm.DB) ScanLog
	HasSuccessfulScan(ctx context.Context, orderID uuid.UUID, kind enums.ScanKind) (bool, error)
}

// DiscrepancyLog reports how many discrepancies on an order still await a
// customer decision. Implemented by the discrepancies repository.
type DiscrepancyLog interface {
	WithTx(tx *gorm.DB) DiscrepancyLog
	CountPendingByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// Service drives the order status state machine. Every write is a conditional
// update keyed on the status the transaction read; losing the race surfaces as
// CONCURRENT_MODIFICATION rather than a silent overwrite.
type Service interface {
	Advance(ctx context.Context, input AdvanceInput) (*models.Order, error)
	AdvanceInTx(ctx context.Context, tx *gorm.DB, input AdvanceInput) (*models.Order, error)
}

// AdvanceInput captures a requested status transition.
type AdvanceInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	ActorID uuid.UUID
	Role    enums.ActorRole
	Reason  *string
}

type service struct {
	repo    orders.Repository
	tx      txRunner
	outbox  outboxPublisher
	scanLog ScanLog
	discLog DiscrepancyLog
}

// NewService builds the fulfillment orchestrator.
func NewService(repo orders.Repository, tx txRunner, outbox outboxPublisher, scanLog ScanLog, discLog DiscrepancyLog) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if scanLog == nil {
		return nil, fmt.Errorf("scan log required")
	}
	if discLog == nil {
		return nil, fmt.Errorf("discrepancy log required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, scanLog: scanLog, discLog: discLog}, nil
}

func (s *service) Advance(ctx context.Context, input AdvanceInput) (*models.Order, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.AdvanceInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) AdvanceInTx(ctx context.Context, tx *gorm.DB, input AdvanceInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status").
			WithDetails(map[string]any{"target": input.Target})
	}

	repo := s.repo.WithTx(tx)

	order, err := repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.Status == input.Target {
		// idempotent repeat of an applied transition
		return order, nil
	}

	if !order.Status.CanTransitionTo(input.Target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition disallowed").
			WithDetails(map[string]any{
				"current": order.Status,
				"target":  input.Target,
				"allowed": order.Status.Successors(),
			})
	}

	if order.Status == enums.OrderStatusPendingItemConfirm && input.Target == enums.OrderStatusProcessing {
		pending, err := s.discLog.WithTx(tx).CountPendingByOrder(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending discrepancies")
		}
		if pending > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "discrepancies still await a customer decision").
				WithDetails(map[string]any{
					"current": order.Status,
					"target":  input.Target,
					"pending": pending,
				})
		}
	}

	if input.Target == enums.OrderStatusInTransitToCustomer {
		verified, err := s.scanLog.WithTx(tx).HasSuccessfulScan(ctx, order.ID, enums.ScanKindPreloadVerify)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check preload scan")
		}
		if !verified {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "preload verification required before dispatch").
				WithDetails(map[string]any{
					"current": order.Status,
					"target":  input.Target,
				})
		}
	}

	now := time.Now().UTC()
	updates := map[string]any{}
	switch input.Target {
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusCancelled:
		updates["canceled_at"] = now
	}

	rows, err := repo.UpdateOrderStatus(ctx, order.ID, order.Status, input.Target, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConcurrency, "order was modified concurrently").
			WithDetails(map[string]any{"order_id": order.ID})
	}

	from := order.Status
	order.Status = input.Target
	switch input.Target {
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &now
	case enums.OrderStatusCancelled:
		order.CanceledAt = &now
	}

	if err := s.emitTransition(ctx, tx, order, from, input); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) emitTransition(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus, input AdvanceInput) error {
	actor := &outbox.ActorRef{UserID: input.ActorID, Role: input.Role.String()}

	if input.Target == enums.OrderStatusCancelled {
		reason := ""
		if input.Reason != nil {
			reason = *input.Reason
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actor,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				CustomerID:  order.CustomerID,
				CancelledAt: *order.CanceledAt,
				Reason:      reason,
			},
		})
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStateChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.OrderStateChangedEvent{
			OrderID:    order.ID,
			CustomerID: order.CustomerID,
			From:       from,
			To:         order.Status,
			Actor:      input.Role.String(),
		},
	})
}
