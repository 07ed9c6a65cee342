package scans

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidkorte/freshpress-backend/internal/fulfillment"
	"github.com/davidkorte/freshpress-backend/internal/orders"
	dbpkg "github.com/davidkorte/freshpress-backend/pkg/db"
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

// requiredStatusByKind maps each scan checkpoint to the status the order must
// hold for the scan to pass.
var requiredStatusByKind = map[enums.ScanKind]enums.OrderStatus{
	enums.ScanKindPickupVerify:    enums.OrderStatusAwaitingPickupCustomer,
	enums.ScanKindFacilityArrival: enums.OrderStatusInTransitToFacility,
	enums.ScanKindPreloadVerify:   enums.OrderStatusReadyForDelivery,
	enums.ScanKindDeliveryVerify:  enums.OrderStatusInTransitToCustomer,
}

// transitionByKind maps passing scans to the transition they trigger.
// preload_verify has no entry: it logs only.
var transitionByKind = map[enums.ScanKind]enums.OrderStatus{
	enums.ScanKindPickupVerify:    enums.OrderStatusInTransitToFacility,
	enums.ScanKindFacilityArrival: enums.OrderStatusArrivedAtFacility,
	enums.ScanKindDeliveryVerify:  enums.OrderStatusDelivered,
}

// Service verifies driver scans against the order lifecycle and records
// proof-of-delivery.
type Service interface {
	Verify(ctx context.Context, input VerifyInput) (*VerifyResult, error)
	SubmitProof(ctx context.Context, input ProofInput) (*models.ProofOfDelivery, error)
	History(ctx context.Context, orderID uuid.UUID) ([]models.ScanEvent, error)
}

// VerifyInput identifies the scanned order by code (order id or order number).
type VerifyInput struct {
	Code    string
	Kind    enums.ScanKind
	AgentID uuid.UUID
}

// VerifyResult reports the recorded scan and the resulting order status.
type VerifyResult struct {
	Order *models.Order     `json:"order"`
	Scan  *models.ScanEvent `json:"scan"`
}

// ProofInput captures a proof-of-delivery submission.
type ProofInput struct {
	OrderID  uuid.UUID
	AgentID  uuid.UUID
	Note     *string
	PhotoURL *string
}

type service struct {
	repo         Repository
	orders       orders.Repository
	orchestrator fulfillment.Service
	tx           txRunner
	outbox       outboxPublisher
}

// NewService wires the scan verifier dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, orchestrator fulfillment.Service, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("scans repository required")
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

// errScanPrecondition marks an in-transaction status mismatch so the failed
// attempt can be logged after the rollback.
var errScanPrecondition = errors.New("order not in expected status for scan")

func (s *service) Verify(ctx context.Context, input VerifyInput) (*VerifyResult, error) {
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "agent identity missing")
	}
	required, ok := requiredStatusByKind[input.Kind]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown scan kind").
			WithDetails(map[string]any{"kind": input.Kind})
	}

	// Resolve outside the transaction: an unknown code must leave no rows.
	order, err := s.resolveOrder(ctx, input.Code)
	if err != nil {
		return nil, err
	}

	var scan *models.ScanEvent
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// The status check rides the same transaction as the ok row and the
		// transition; the resolve read above may already be stale.
		current, err := s.orders.WithTx(tx).FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		order = current
		if order.Status != required {
			return errScanPrecondition
		}

		event := &models.ScanEvent{
			ID:      uuid.New(),
			OrderID: order.ID,
			Kind:    input.Kind,
			AgentID: input.AgentID,
			Outcome: enums.ScanOutcomeOK,
		}
		if err := s.repo.WithTx(tx).CreateScanEvent(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record scan")
		}
		if err := s.emitScan(ctx, tx, order, event); err != nil {
			return err
		}

		if target, moves := transitionByKind[input.Kind]; moves {
			updated, err := s.orchestrator.AdvanceInTx(ctx, tx, fulfillment.AdvanceInput{
				OrderID: order.ID,
				Target:  target,
				ActorID: input.AgentID,
				Role:    enums.RoleDriver,
			})
			if err != nil {
				return err
			}
			order = updated
		}

		scan = event
		return nil
	})
	if err != nil {
		return nil, s.auditFailedAttempt(ctx, order, input, required, err)
	}
	return &VerifyResult{Order: order, Scan: scan}, nil
}

// auditFailedAttempt commits a failed ScanEvent in its own transaction once
// the verify transaction has rolled back. Every scan attempt against a known
// order leaves a row, including attempts that lost a status race.
func (s *service) auditFailedAttempt(ctx context.Context, order *models.Order, input VerifyInput, required enums.OrderStatus, cause error) error {
	switch {
	case errors.Is(cause, errScanPrecondition):
		if _, recErr := s.recordScan(ctx, order, input, enums.ScanOutcomeFailed, failNote(required, order.Status)); recErr != nil {
			return recErr
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order not in expected status for scan").
			WithDetails(map[string]any{
				"expected": required,
				"actual":   order.Status,
				"kind":     input.Kind,
			})
	default:
		if appErr := pkgerrors.As(cause); appErr != nil && appErr.Code() == pkgerrors.CodeConcurrency {
			note := "order changed during scan"
			if _, recErr := s.recordScan(ctx, order, input, enums.ScanOutcomeFailed, &note); recErr != nil {
				return recErr
			}
		}
		return cause
	}
}

func (s *service) SubmitProof(ctx context.Context, input ProofInput) (*models.ProofOfDelivery, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "agent identity missing")
	}

	order, err := s.orders.FindOrder(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not delivered yet").
			WithDetails(map[string]any{
				"expected": enums.OrderStatusDelivered,
				"actual":   order.Status,
			})
	}

	proof := &models.ProofOfDelivery{
		ID:          uuid.New(),
		OrderID:     order.ID,
		AgentID:     input.AgentID,
		Note:        input.Note,
		PhotoURL:    input.PhotoURL,
		DeliveredAt: time.Now().UTC(),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateProof(ctx, proof); err != nil {
			if dbpkg.IsUniqueViolation(err, "uq_pod_order") {
				return pkgerrors.New(pkgerrors.CodeConflict, "proof of delivery already submitted")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create proof of delivery")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.AgentID, Role: enums.RoleDriver.String()},
			Data: payloads.DeliveryConfirmedEvent{
				OrderID:     order.ID,
				CustomerID:  order.CustomerID,
				AgentID:     input.AgentID,
				DeliveredAt: proof.DeliveredAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return proof, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID) ([]models.ScanEvent, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	events, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list scans")
	}
	return events, nil
}

// resolveOrder accepts either the order UUID or the printed order number.
func (s *service) resolveOrder(ctx context.Context, code string) (*models.Order, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scan code required")
	}

	var (
		order *models.Order
		err   error
	)
	if id, parseErr := uuid.Parse(code); parseErr == nil {
		order, err = s.orders.FindOrder(ctx, id)
	} else if number, parseErr := strconv.ParseInt(code, 10, 64); parseErr == nil {
		order, err = s.orders.FindOrderByNumber(ctx, number)
	} else {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scan code must be an order id or order number")
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) recordScan(ctx context.Context, order *models.Order, input VerifyInput, outcome enums.ScanOutcome, note *string) (*models.ScanEvent, error) {
	event := &models.ScanEvent{
		ID:      uuid.New(),
		OrderID: order.ID,
		Kind:    input.Kind,
		AgentID: input.AgentID,
		Outcome: outcome,
		Note:    note,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateScanEvent(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record scan")
		}
		return s.emitScan(ctx, tx, order, event)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) emitScan(ctx context.Context, tx *gorm.DB, order *models.Order, event *models.ScanEvent) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventScanRecorded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: event.AgentID, Role: enums.RoleDriver.String()},
		Data: payloads.ScanRecordedEvent{
			OrderID: order.ID,
			Kind:    event.Kind,
			Outcome: event.Outcome,
			AgentID: event.AgentID,
		},
	})
}

func failNote(expected, actual enums.OrderStatus) *string {
	note := fmt.Sprintf("expected %s, order was %s", expected, actual)
	return &note
}
