package discrepancies

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidkorte/freshpress-backend/internal/fulfillment"
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

// Service adjudicates facility-reported mismatches. Reporting parks the order
// in pending_item_confirmation; deciding the last pending discrepancy rewrites
// the affected line items, recomputes totals, and releases the order to
// processing in the same transaction.
type Service interface {
	Report(ctx context.Context, input ReportInput) (*models.DiscrepancyItem, error)
	Decide(ctx context.Context, input DecideInput) (*models.DiscrepancyItem, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.DiscrepancyItem, error)
}

// ReportInput is a facility-side mismatch report against one line item.
type ReportInput struct {
	OrderID     uuid.UUID
	OrderItemID *uuid.UUID
	ItemName    string
	ExpectedQty int
	FoundQty    int
	Kind        enums.DiscrepancyKind
	Reason      *string
	ActorID     uuid.UUID
}

// DecideInput carries the customer verdict on one discrepancy.
type DecideInput struct {
	DiscrepancyID uuid.UUID
	Decision      enums.DiscrepancyDecision
	ActorID       uuid.UUID
}

type service struct {
	repo         Repository
	orders       orders.Repository
	orchestrator fulfillment.Service
	tx           txRunner
	outbox       outboxPublisher
}

// NewService wires the discrepancy resolver dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, orchestrator fulfillment.Service, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discrepancies repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if orchestrator == nil {
		return nil, fmt.Errorf("fulfillment orchestrator required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:         repo,
		orders:       ordersRepo,
		orchestrator: orchestrator,
		tx:           tx,
		outbox:       outbox,
	}, nil
}

func (s *service) Report(ctx context.Context, input ReportInput) (*models.DiscrepancyItem, error) {
	if err := validateReport(input); err != nil {
		return nil, err
	}

	var created *models.DiscrepancyItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		order, err := ordersRepo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusArrivedAtFacility && order.Status != enums.OrderStatusPendingItemConfirm {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not at the facility intake stage").
				WithDetails(map[string]any{
					"current": order.Status,
					"allowed": []enums.OrderStatus{enums.OrderStatusArrivedAtFacility, enums.OrderStatusPendingItemConfirm},
				})
		}

		item := &models.DiscrepancyItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			OrderItemID: input.OrderItemID,
			ItemName:    input.ItemName,
			ExpectedQty: input.ExpectedQty,
			FoundQty:    input.FoundQty,
			Kind:        input.Kind,
			Reason:      input.Reason,
			Status:      enums.DiscrepancyStatusPendingDecision,
		}
		if err := s.repo.WithTx(tx).Create(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discrepancy")
		}

		if order.Status == enums.OrderStatusArrivedAtFacility {
			if _, err := s.orchestrator.AdvanceInTx(ctx, tx, fulfillment.AdvanceInput{
				OrderID: order.ID,
				Target:  enums.OrderStatusPendingItemConfirm,
				ActorID: input.ActorID,
				Role:    enums.RoleFacility,
			}); err != nil {
				return err
			}
		}
		if !order.HasDiscrepancy {
			if err := ordersRepo.UpdateOrder(ctx, order.ID, map[string]any{"has_discrepancy": true}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag discrepancy")
			}
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDiscrepancyReported,
			AggregateType: enums.AggregateDiscrepancy,
			AggregateID:   item.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: enums.RoleFacility.String()},
			Data: payloads.DiscrepancyReportedEvent{
				DiscrepancyID: item.ID,
				OrderID:       order.ID,
				CustomerID:    order.CustomerID,
				ItemName:      item.ItemName,
				Kind:          item.Kind,
				ExpectedQty:   item.ExpectedQty,
				FoundQty:      item.FoundQty,
			},
		})
		if err != nil {
			return err
		}

		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Decide(ctx context.Context, input DecideInput) (*models.DiscrepancyItem, error) {
	if input.DiscrepancyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discrepancy id required")
	}
	if !input.Decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown decision").
			WithDetails(map[string]any{"decision": input.Decision})
	}

	var decided *models.DiscrepancyItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindByID(ctx, input.DiscrepancyID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "discrepancy not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discrepancy")
		}

		// Decisions on one order are serialized on the order row. Under read
		// committed, two decides racing on the last pending items would each
		// still count the other's row as pending and both skip reconciliation.
		if _, err := s.orders.WithTx(tx).FindOrderForUpdate(ctx, item.OrderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		now := time.Now().UTC()
		rows, err := repo.MarkDecided(ctx, item.ID, input.Decision, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record decision")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "discrepancy already decided").
				WithDetails(map[string]any{"discrepancy_id": item.ID})
		}
		item.Status = enums.DiscrepancyStatusResolved
		item.Decision = &input.Decision
		item.DecidedAt = &now

		if input.Decision == enums.DiscrepancyDecisionApproved && item.OrderItemID != nil {
			if err := s.applyApprovedQuantity(ctx, tx, item); err != nil {
				return err
			}
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDiscrepancyDecided,
			AggregateType: enums.AggregateDiscrepancy,
			AggregateID:   item.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: enums.RoleCustomer.String()},
			Data: payloads.DiscrepancyDecidedEvent{
				DiscrepancyID: item.ID,
				OrderID:       item.OrderID,
				Decision:      input.Decision,
				DecidedAt:     now,
			},
		})
		if err != nil {
			return err
		}

		if err := s.reconcile(ctx, tx, item.OrderID, input.ActorID); err != nil {
			return err
		}

		decided = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.DiscrepancyItem, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	items, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list discrepancies")
	}
	return items, nil
}

// applyApprovedQuantity rewrites the affected line item to the found quantity.
func (s *service) applyApprovedQuantity(ctx context.Context, tx *gorm.DB, item *models.DiscrepancyItem) error {
	ordersRepo := s.orders.WithTx(tx)

	lineItems, err := ordersRepo.FindOrderItemsByOrder(ctx, item.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	for _, line := range lineItems {
		if line.ID != *item.OrderItemID {
			continue
		}
		updates := map[string]any{
			"qty":            item.FoundQty,
			"subtotal_cents": item.FoundQty * line.UnitPriceCents,
		}
		if err := ordersRepo.UpdateOrderItem(ctx, line.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rewrite order item")
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
}

// reconcile runs after every decision. Once no discrepancy on the order is
// pending it recomputes the totals from the current line items, clears the
// flag, and moves the order on to processing.
func (s *service) reconcile(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actorID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	ordersRepo := s.orders.WithTx(tx)

	pending, err := repo.CountPendingByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending discrepancies")
	}
	if pending > 0 {
		return nil
	}

	lineItems, err := ordersRepo.FindOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	subtotal := 0
	for _, line := range lineItems {
		subtotal += line.SubtotalCents
	}

	if err := ordersRepo.UpdateOrder(ctx, orderID, map[string]any{
		"subtotal_cents":  subtotal,
		"total_cents":     subtotal,
		"has_discrepancy": false,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute order totals")
	}

	order, err := s.orchestrator.AdvanceInTx(ctx, tx, fulfillment.AdvanceInput{
		OrderID: orderID,
		Target:  enums.OrderStatusProcessing,
		ActorID: actorID,
		Role:    enums.RoleSystem,
	})
	if err != nil {
		return err
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDiscrepancyReconcile,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: enums.RoleSystem.String()},
		Data: payloads.DiscrepancyReconciledEvent{
			OrderID:       orderID,
			CustomerID:    order.CustomerID,
			SubtotalCents: subtotal,
			TotalCents:    subtotal,
		},
	})
}

func validateReport(input ReportInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ItemName == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown discrepancy kind").
			WithDetails(map[string]any{"kind": input.Kind})
	}
	if input.ExpectedQty < 0 || input.FoundQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantities must not be negative")
	}
	if input.ExpectedQty == input.FoundQty {
		return pkgerrors.New(pkgerrors.CodeValidation, "found quantity equals expected quantity")
	}
	if input.Kind == enums.DiscrepancyKindExtra && input.FoundQty < input.ExpectedQty {
		return pkgerrors.New(pkgerrors.CodeValidation, "extra discrepancy requires found > expected")
	}
	if input.Kind == enums.DiscrepancyKindMissing && input.FoundQty > input.ExpectedQty {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing discrepancy requires found < expected")
	}
	return nil
}
