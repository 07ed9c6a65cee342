package quotes

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidkorte/freshpress-backend/internal/orders"
	"github.com/davidkorte/freshpress-backend/pkg/db/models"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
	pkgerrors "github.com/davidkorte/freshpress-backend/pkg/errors"
	"github.com/davidkorte/freshpress-backend/pkg/outbox"
	"github.com/davidkorte/freshpress-backend/pkg/outbox/payloads"
	"github.com/davidkorte/freshpress-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service runs the quote negotiation: pending on request, quoted once an
// admin prices it, then accepted or declined. Accepting materializes exactly
// one order, already in processing.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.CustomQuote, error)
	Price(ctx context.Context, input PriceInput) (*models.CustomQuote, error)
	Accept(ctx context.Context, input AcceptInput) (*AcceptResult, error)
	Decline(ctx context.Context, input DeclineInput) (*models.CustomQuote, error)
	Get(ctx context.Context, quoteID uuid.UUID) (*models.CustomQuote, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*QuoteList, error)
	ListPendingReview(ctx context.Context, params pagination.Params) (*QuoteList, error)
}

// CreateInput is a customer's freeform quote request.
type CreateInput struct {
	CustomerID          uuid.UUID
	Description         string
	SuggestedPriceCents *int
}

// PriceInput carries the admin-assigned price for a pending quote.
type PriceInput struct {
	QuoteID          uuid.UUID
	QuotedPriceCents int
	ActorID          uuid.UUID
	Role             enums.ActorRole
}

// AcceptInput is the customer's acceptance of a quoted price.
type AcceptInput struct {
	QuoteID    uuid.UUID
	CustomerID uuid.UUID
}

// AcceptResult pairs the accepted quote with the order it produced.
type AcceptResult struct {
	Quote *models.CustomQuote `json:"quote"`
	Order *models.Order       `json:"order"`
}

// DeclineInput ends the negotiation without an order.
type DeclineInput struct {
	QuoteID uuid.UUID
	ActorID uuid.UUID
	Role    enums.ActorRole
}

type service struct {
	repo   Repository
	orders orders.Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService wires the quote negotiator dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("quotes repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, orders: ordersRepo, tx: tx, outbox: outbox}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.CustomQuote, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	if input.SuggestedPriceCents != nil && *input.SuggestedPriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "suggested price must not be negative")
	}

	quote := &models.CustomQuote{
		ID:                  uuid.New(),
		CustomerID:          input.CustomerID,
		Description:         strings.TrimSpace(input.Description),
		SuggestedPriceCents: input.SuggestedPriceCents,
		Status:              enums.QuoteStatusPending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, quote); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quote")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuoteRequested,
			AggregateType: enums.AggregateQuote,
			AggregateID:   quote.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: enums.RoleCustomer.String()},
			Data: payloads.QuoteRequestedEvent{
				QuoteID:    quote.ID,
				CustomerID: quote.CustomerID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *service) Price(ctx context.Context, input PriceInput) (*models.CustomQuote, error) {
	if input.QuoteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}
	if input.QuotedPriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quoted price must be positive")
	}

	var priced *models.CustomQuote
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		quote, err := s.loadQuote(ctx, repo, input.QuoteID)
		if err != nil {
			return err
		}
		if quote.Status == enums.QuoteStatusQuoted {
			// idempotent repeat of an applied transition
			priced = quote
			return nil
		}
		if err := requireTransition(quote.Status, enums.QuoteStatusQuoted); err != nil {
			return err
		}

		rows, err := repo.UpdateQuoteStatus(ctx, quote.ID, quote.Status, enums.QuoteStatusQuoted, map[string]any{
			"quoted_price_cents": input.QuotedPriceCents,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "price quote")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "quote was modified concurrently").
				WithDetails(map[string]any{"quote_id": quote.ID})
		}
		quote.Status = enums.QuoteStatusQuoted
		quote.QuotedPriceCents = &input.QuotedPriceCents

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuotePriced,
			AggregateType: enums.AggregateQuote,
			AggregateID:   quote.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.Role.String()},
			Data: payloads.QuotePricedEvent{
				QuoteID:          quote.ID,
				CustomerID:       quote.CustomerID,
				QuotedPriceCents: input.QuotedPriceCents,
			},
		})
		if err != nil {
			return err
		}

		priced = quote
		return nil
	})
	if err != nil {
		return nil, err
	}
	return priced, nil
}

func (s *service) Accept(ctx context.Context, input AcceptInput) (*AcceptResult, error) {
	if input.QuoteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}

	var result *AcceptResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		quote, err := s.loadQuote(ctx, repo, input.QuoteID)
		if err != nil {
			return err
		}
		if quote.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "quote belongs to another customer")
		}
		if quote.Status == enums.QuoteStatusAccepted && quote.OrderID != nil {
			// idempotent repeat: return the order the acceptance produced
			existing, err := ordersRepo.FindOrder(ctx, *quote.OrderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load accepted order")
			}
			result = &AcceptResult{Quote: quote, Order: existing}
			return nil
		}
		if err := requireTransition(quote.Status, enums.QuoteStatusAccepted); err != nil {
			return err
		}
		if quote.QuotedPriceCents == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "quote has no admin price")
		}

		number, err := ordersRepo.NextOrderNumber(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
		}

		price := *quote.QuotedPriceCents
		order := &models.Order{
			ID:            uuid.New(),
			OrderNumber:   number,
			CustomerID:    quote.CustomerID,
			Status:        enums.OrderStatusProcessing,
			SubtotalCents: price,
			TotalCents:    price,
			Currency:      "EUR",
		}
		if _, err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		item := models.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			Name:           quote.Description,
			Qty:            1,
			UnitPriceCents: price,
			SubtotalCents:  price,
		}
		if err := ordersRepo.CreateOrderItems(ctx, []models.OrderItem{item}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
		}
		order.Items = []models.OrderItem{item}

		rows, err := repo.MarkAccepted(ctx, quote.ID, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept quote")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "quote was modified concurrently").
				WithDetails(map[string]any{"quote_id": quote.ID})
		}
		quote.Status = enums.QuoteStatusAccepted
		quote.OrderID = &order.ID

		actor := &outbox.ActorRef{UserID: input.CustomerID, Role: enums.RoleCustomer.String()}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuoteAccepted,
			AggregateType: enums.AggregateQuote,
			AggregateID:   quote.ID,
			Version:       1,
			Actor:         actor,
			Data: payloads.QuoteAcceptedEvent{
				QuoteID:    quote.ID,
				CustomerID: quote.CustomerID,
				OrderID:    order.ID,
			},
		})
		if err != nil {
			return err
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actor,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				TotalCents:  order.TotalCents,
			},
		})
		if err != nil {
			return err
		}

		result = &AcceptResult{Quote: quote, Order: order}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Decline(ctx context.Context, input DeclineInput) (*models.CustomQuote, error) {
	if input.QuoteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}

	var declined *models.CustomQuote
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		quote, err := s.loadQuote(ctx, repo, input.QuoteID)
		if err != nil {
			return err
		}
		if quote.Status == enums.QuoteStatusDeclined {
			// idempotent repeat of an applied transition
			declined = quote
			return nil
		}
		if err := requireTransition(quote.Status, enums.QuoteStatusDeclined); err != nil {
			return err
		}

		rows, err := repo.UpdateQuoteStatus(ctx, quote.ID, quote.Status, enums.QuoteStatusDeclined, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decline quote")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "quote was modified concurrently").
				WithDetails(map[string]any{"quote_id": quote.ID})
		}
		quote.Status = enums.QuoteStatusDeclined

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuoteDeclined,
			AggregateType: enums.AggregateQuote,
			AggregateID:   quote.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.Role.String()},
			Data: payloads.QuoteDeclinedEvent{
				QuoteID:    quote.ID,
				CustomerID: quote.CustomerID,
				DeclinedBy: input.Role.String(),
			},
		})
		if err != nil {
			return err
		}

		declined = quote
		return nil
	})
	if err != nil {
		return nil, err
	}
	return declined, nil
}

func (s *service) Get(ctx context.Context, quoteID uuid.UUID) (*models.CustomQuote, error) {
	if quoteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}
	return s.loadQuote(ctx, s.repo, quoteID)
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*QuoteList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	list, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotes")
	}
	return list, nil
}

func (s *service) ListPendingReview(ctx context.Context, params pagination.Params) (*QuoteList, error) {
	list, err := s.repo.ListByStatus(ctx, enums.QuoteStatusPending, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending quotes")
	}
	return list, nil
}

func (s *service) loadQuote(ctx context.Context, repo Repository, quoteID uuid.UUID) (*models.CustomQuote, error) {
	quote, err := repo.FindByID(ctx, quoteID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	return quote, nil
}

func requireTransition(current, target enums.QuoteStatus) error {
	if !current.CanTransitionTo(target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "quote transition disallowed").
			WithDetails(map[string]any{
				"current": current,
				"target":  target,
			})
	}
	return nil
}
