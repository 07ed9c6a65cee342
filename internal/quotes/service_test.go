package quotes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidkorte/freshpress-backend/internal/orders"
	"github.com/davidkorte/freshpress-backend/pkg/db/models"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
	pkgerrors "github.com/davidkorte/freshpress-backend/pkg/errors"
	"github.com/davidkorte/freshpress-backend/pkg/outbox"
	"github.com/davidkorte/freshpress-backend/pkg/pagination"
)

type stubQuotesRepo struct {
	quotes []*models.CustomQuote
}

func (s *stubQuotesRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubQuotesRepo) Create(ctx context.Context, quote *models.CustomQuote) error {
	copied := *quote
	s.quotes = append(s.quotes, &copied)
	return nil
}

func (s *stubQuotesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.CustomQuote, error) {
	for _, quote := range s.quotes {
		if quote.ID == id {
			copied := *quote
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubQuotesRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*QuoteList, error) {
	var out []models.CustomQuote
	for _, quote := range s.quotes {
		if quote.CustomerID == customerID {
			out = append(out, *quote)
		}
	}
	return &QuoteList{Quotes: out}, nil
}

func (s *stubQuotesRepo) ListByStatus(ctx context.Context, status enums.QuoteStatus, params pagination.Params) (*QuoteList, error) {
	var out []models.CustomQuote
	for _, quote := range s.quotes {
		if quote.Status == status {
			out = append(out, *quote)
		}
	}
	return &QuoteList{Quotes: out}, nil
}

func (s *stubQuotesRepo) UpdateQuoteStatus(ctx context.Context, id uuid.UUID, from, to enums.QuoteStatus, updates map[string]any) (int64, error) {
	for _, quote := range s.quotes {
		if quote.ID == id && quote.Status == from {
			quote.Status = to
			if v, ok := updates["quoted_price_cents"]; ok {
				price := v.(int)
				quote.QuotedPriceCents = &price
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (s *stubQuotesRepo) MarkAccepted(ctx context.Context, id uuid.UUID, orderID uuid.UUID) (int64, error) {
	for _, quote := range s.quotes {
		if quote.ID == id && quote.Status == enums.QuoteStatusQuoted && quote.OrderID == nil {
			quote.Status = enums.QuoteStatusAccepted
			quote.OrderID = &orderID
			return 1, nil
		}
	}
	return 0, nil
}

type stubOrdersRepo struct {
	created      []*models.Order
	createdItems []models.OrderItem
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.created = append(s.created, order)
	return order, nil
}

func (s *stubOrdersRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	s.createdItems = append(s.createdItems, items...)
	return nil
}

func (s *stubOrdersRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	for _, order := range s.created {
		if order.ID == orderID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.FindOrder(ctx, orderID)
}

func (s *stubOrdersRepo) FindOrderByNumber(ctx context.Context, orderNumber int64) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return nil, nil
}

func (s *stubOrdersRepo) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (int64, error) {
	return 1, nil
}

func (s *stubOrdersRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubOrdersRepo) UpdateOrderItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubOrdersRepo) NextOrderNumber(ctx context.Context) (int64, error) {
	return 1044, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTestService(t *testing.T, repo *stubQuotesRepo, ordersRepo *stubOrdersRepo) (Service, *stubOutbox) {
	t.Helper()
	emitted := &stubOutbox{}
	svc, err := NewService(repo, ordersRepo, stubTxRunner{}, emitted)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, emitted
}

func TestCreateQuoteStartsPending(t *testing.T) {
	repo := &stubQuotesRepo{}
	svc, emitted := newTestService(t, repo, &stubOrdersRepo{})

	suggested := 2000
	quote, err := svc.Create(context.Background(), CreateInput{
		CustomerID:          uuid.New(),
		Description:         "wedding dress, silk, hand wash",
		SuggestedPriceCents: &suggested,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if quote.Status != enums.QuoteStatusPending {
		t.Fatalf("unexpected status %s", quote.Status)
	}
	if len(emitted.events) != 1 || emitted.events[0].EventType != enums.EventQuoteRequested {
		t.Fatalf("expected quote_requested, got %+v", emitted.events)
	}
}

func TestCreateQuoteRequiresDescription(t *testing.T) {
	svc, _ := newTestService(t, &stubQuotesRepo{}, &stubOrdersRepo{})

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID:  uuid.New(),
		Description: "   ",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestPriceMovesPendingToQuoted(t *testing.T) {
	repo := &stubQuotesRepo{}
	svc, emitted := newTestService(t, repo, &stubOrdersRepo{})

	quote, err := svc.Create(context.Background(), CreateInput{
		CustomerID:  uuid.New(),
		Description: "leather jacket",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	priced, err := svc.Price(context.Background(), PriceInput{
		QuoteID:          quote.ID,
		QuotedPriceCents: 3500,
		ActorID:          uuid.New(),
		Role:             enums.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if priced.Status != enums.QuoteStatusQuoted {
		t.Fatalf("unexpected status %s", priced.Status)
	}
	if priced.QuotedPriceCents == nil || *priced.QuotedPriceCents != 3500 {
		t.Fatalf("unexpected price %+v", priced.QuotedPriceCents)
	}
	last := emitted.events[len(emitted.events)-1]
	if last.EventType != enums.EventQuotePriced {
		t.Fatalf("expected quote_priced, got %s", last.EventType)
	}
}

func TestAcceptRequiresQuotedFirst(t *testing.T) {
	repo := &stubQuotesRepo{}
	customerID := uuid.New()
	svc, _ := newTestService(t, repo, &stubOrdersRepo{})

	quote, err := svc.Create(context.Background(), CreateInput{
		CustomerID:  customerID,
		Description: "down duvet",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// pending -> accepted skips the admin price, must be refused
	_, err = svc.Accept(context.Background(), AcceptInput{
		QuoteID:    quote.ID,
		CustomerID: customerID,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestAcceptMaterializesOrder(t *testing.T) {
	repo := &stubQuotesRepo{}
	ordersRepo := &stubOrdersRepo{}
	customerID := uuid.New()
	svc, emitted := newTestService(t, repo, ordersRepo)

	quote, err := svc.Create(context.Background(), CreateInput{
		CustomerID:  customerID,
		Description: "down duvet",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Price(context.Background(), PriceInput{
		QuoteID:          quote.ID,
		QuotedPriceCents: 4200,
		ActorID:          uuid.New(),
		Role:             enums.RoleAdmin,
	}); err != nil {
		t.Fatalf("Price: %v", err)
	}

	result, err := svc.Accept(context.Background(), AcceptInput{
		QuoteID:    quote.ID,
		CustomerID: customerID,
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if result.Quote.Status != enums.QuoteStatusAccepted {
		t.Fatalf("unexpected quote status %s", result.Quote.Status)
	}
	if result.Quote.OrderID == nil || *result.Quote.OrderID != result.Order.ID {
		t.Fatal("quote must link the generated order")
	}
	if result.Order.Status != enums.OrderStatusProcessing {
		t.Fatalf("generated order must start in processing, got %s", result.Order.Status)
	}
	if result.Order.TotalCents != 4200 || result.Order.OrderNumber != 1044 {
		t.Fatalf("unexpected order %+v", result.Order)
	}
	if len(ordersRepo.createdItems) != 1 || ordersRepo.createdItems[0].UnitPriceCents != 4200 {
		t.Fatalf("unexpected items %+v", ordersRepo.createdItems)
	}

	types := []enums.OutboxEventType{}
	for _, e := range emitted.events {
		types = append(types, e.EventType)
	}
	want := []enums.OutboxEventType{
		enums.EventQuoteRequested,
		enums.EventQuotePriced,
		enums.EventQuoteAccepted,
		enums.EventOrderCreated,
	}
	if len(types) != len(want) {
		t.Fatalf("unexpected events %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event %d: want %s, got %s", i, want[i], types[i])
		}
	}
}

func TestAcceptByAnotherCustomer(t *testing.T) {
	repo := &stubQuotesRepo{}
	svc, _ := newTestService(t, repo, &stubOrdersRepo{})

	quote, err := svc.Create(context.Background(), CreateInput{
		CustomerID:  uuid.New(),
		Description: "suede shoes",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Price(context.Background(), PriceInput{
		QuoteID:          quote.ID,
		QuotedPriceCents: 1500,
		ActorID:          uuid.New(),
		Role:             enums.RoleAdmin,
	}); err != nil {
		t.Fatalf("Price: %v", err)
	}

	_, err = svc.Accept(context.Background(), AcceptInput{
		QuoteID:    quote.ID,
		CustomerID: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestAcceptTwiceReturnsSameOrder(t *testing.T) {
	repo := &stubQuotesRepo{}
	ordersRepo := &stubOrdersRepo{}
	customerID := uuid.New()
	svc, emitted := newTestService(t, repo, ordersRepo)

	quote, err := svc.Create(context.Background(), CreateInput{
		CustomerID:  customerID,
		Description: "wool coat",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Price(context.Background(), PriceInput{
		QuoteID:          quote.ID,
		QuotedPriceCents: 2800,
		ActorID:          uuid.New(),
		Role:             enums.RoleAdmin,
	}); err != nil {
		t.Fatalf("Price: %v", err)
	}
	first, err := svc.Accept(context.Background(), AcceptInput{QuoteID: quote.ID, CustomerID: customerID})
	if err != nil {
		t.Fatalf("first Accept: %v", err)
	}
	emittedBefore := len(emitted.events)

	// idempotent repeat: same order back, no second order, no new events
	second, err := svc.Accept(context.Background(), AcceptInput{QuoteID: quote.ID, CustomerID: customerID})
	if err != nil {
		t.Fatalf("second Accept: %v", err)
	}
	if second.Order.ID != first.Order.ID {
		t.Fatalf("repeat accept produced a different order %s", second.Order.ID)
	}
	if len(ordersRepo.created) != 1 {
		t.Fatalf("expected one order, got %d", len(ordersRepo.created))
	}
	if len(emitted.events) != emittedBefore {
		t.Fatalf("repeat accept must not emit events, got %d new", len(emitted.events)-emittedBefore)
	}
}

func TestPriceTwiceIsNoOp(t *testing.T) {
	repo := &stubQuotesRepo{}
	svc, emitted := newTestService(t, repo, &stubOrdersRepo{})

	quote, err := svc.Create(context.Background(), CreateInput{
		CustomerID:  uuid.New(),
		Description: "cashmere scarf",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Price(context.Background(), PriceInput{
		QuoteID:          quote.ID,
		QuotedPriceCents: 1200,
		ActorID:          uuid.New(),
		Role:             enums.RoleAdmin,
	}); err != nil {
		t.Fatalf("Price: %v", err)
	}
	emittedBefore := len(emitted.events)

	repeat, err := svc.Price(context.Background(), PriceInput{
		QuoteID:          quote.ID,
		QuotedPriceCents: 1500,
		ActorID:          uuid.New(),
		Role:             enums.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("repeat Price: %v", err)
	}
	if repeat.QuotedPriceCents == nil || *repeat.QuotedPriceCents != 1200 {
		t.Fatalf("repeat price must keep the applied price, got %+v", repeat.QuotedPriceCents)
	}
	if len(emitted.events) != emittedBefore {
		t.Fatal("repeat price must not emit events")
	}
}

func TestDeclineFromPendingAndQuoted(t *testing.T) {
	repo := &stubQuotesRepo{}
	svc, emitted := newTestService(t, repo, &stubOrdersRepo{})

	quote, err := svc.Create(context.Background(), CreateInput{
		CustomerID:  uuid.New(),
		Description: "silk tie",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	declined, err := svc.Decline(context.Background(), DeclineInput{
		QuoteID: quote.ID,
		ActorID: uuid.New(),
		Role:    enums.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if declined.Status != enums.QuoteStatusDeclined {
		t.Fatalf("unexpected status %s", declined.Status)
	}
	last := emitted.events[len(emitted.events)-1]
	if last.EventType != enums.EventQuoteDeclined {
		t.Fatalf("expected quote_declined, got %s", last.EventType)
	}

	// declining again repeats an applied transition: no-op, no new event
	emittedBefore := len(emitted.events)
	repeat, err := svc.Decline(context.Background(), DeclineInput{
		QuoteID: quote.ID,
		ActorID: uuid.New(),
		Role:    enums.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("repeat Decline: %v", err)
	}
	if repeat.Status != enums.QuoteStatusDeclined {
		t.Fatalf("unexpected status %s", repeat.Status)
	}
	if len(emitted.events) != emittedBefore {
		t.Fatal("repeat decline must not emit events")
	}

	// accepted is still unreachable from declined
	_, err = svc.Accept(context.Background(), AcceptInput{
		QuoteID:    quote.ID,
		CustomerID: repo.quotes[0].CustomerID,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}
