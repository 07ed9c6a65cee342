package fulfillment

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

type stubRepo struct {
	order             *models.Order
	updateRows        int64
	updatedTo         enums.OrderStatus
	capturedUpdates   map[string]any
	updateOrderStatus func(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (int64, error)
}

func (s *stubRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	return nil
}

func (s *stubRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubRepo) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.FindOrder(ctx, orderID)
}

func (s *stubRepo) FindOrderByNumber(ctx context.Context, orderNumber int64) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) FindOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return nil, nil
}

func (s *stubRepo) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error) {
	panic("not implemented")
}

func (s *stubRepo) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (int64, error) {
	if s.updateOrderStatus != nil {
		return s.updateOrderStatus(ctx, orderID, from, to, updates)
	}
	s.updatedTo = to
	s.capturedUpdates = updates
	return s.updateRows, nil
}

func (s *stubRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubRepo) UpdateOrderItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubRepo) NextOrderNumber(ctx context.Context) (int64, error) {
	return 1001, nil
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

type stubScanLog struct {
	verified bool
}

func (s *stubScanLog) WithTx(tx *gorm.DB) ScanLog { return s }

func (s *stubScanLog) HasSuccessfulScan(ctx context.Context, orderID uuid.UUID, kind enums.ScanKind) (bool, error) {
	return s.verified, nil
}

type stubDiscrepancyLog struct {
	pending int64
}

func (s *stubDiscrepancyLog) WithTx(tx *gorm.DB) DiscrepancyLog { return s }

func (s *stubDiscrepancyLog) CountPendingByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return s.pending, nil
}

func newTestService(t *testing.T, repo *stubRepo, scans *stubScanLog) (Service, *stubOutbox) {
	t.Helper()
	emitted := &stubOutbox{}
	svc, err := NewService(repo, stubTxRunner{}, emitted, scans, &stubDiscrepancyLog{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, emitted
}

func orderInStatus(status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Status:     status,
	}
}

func TestAdvanceHappyPath(t *testing.T) {
	repo := &stubRepo{order: orderInStatus(enums.OrderStatusCreated), updateRows: 1}
	svc, emitted := newTestService(t, repo, &stubScanLog{})

	updated, err := svc.Advance(context.Background(), AdvanceInput{
		OrderID: repo.order.ID,
		Target:  enums.OrderStatusAwaitingPickupCustomer,
		ActorID: uuid.New(),
		Role:    enums.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if updated.Status != enums.OrderStatusAwaitingPickupCustomer {
		t.Fatalf("unexpected status %s", updated.Status)
	}
	if len(emitted.events) != 1 || emitted.events[0].EventType != enums.EventOrderStateChanged {
		t.Fatalf("expected order_state_changed event, got %+v", emitted.events)
	}
}

func TestAdvanceSameStatusIsNoOp(t *testing.T) {
	repo := &stubRepo{order: orderInStatus(enums.OrderStatusProcessing), updateRows: 1}
	svc, emitted := newTestService(t, repo, &stubScanLog{})

	updated, err := svc.Advance(context.Background(), AdvanceInput{
		OrderID: repo.order.ID,
		Target:  enums.OrderStatusProcessing,
		ActorID: uuid.New(),
		Role:    enums.RoleFacility,
	})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if updated.Status != enums.OrderStatusProcessing {
		t.Fatalf("unexpected status %s", updated.Status)
	}
	if len(emitted.events) != 0 {
		t.Fatalf("no-op advance must not emit events, got %d", len(emitted.events))
	}
}

func TestAdvanceRejectsNonSuccessor(t *testing.T) {
	repo := &stubRepo{order: orderInStatus(enums.OrderStatusCreated), updateRows: 1}
	svc, _ := newTestService(t, repo, &stubScanLog{})

	_, err := svc.Advance(context.Background(), AdvanceInput{
		OrderID: repo.order.ID,
		Target:  enums.OrderStatusDelivered,
		ActorID: uuid.New(),
		Role:    enums.RoleAdmin,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	details, ok := appErr.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", appErr.Details())
	}
	if details["current"] != enums.OrderStatusCreated || details["target"] != enums.OrderStatusDelivered {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestAdvanceUnknownOrder(t *testing.T) {
	repo := &stubRepo{updateRows: 1}
	svc, _ := newTestService(t, repo, &stubScanLog{})

	_, err := svc.Advance(context.Background(), AdvanceInput{
		OrderID: uuid.New(),
		Target:  enums.OrderStatusAwaitingPickupCustomer,
		ActorID: uuid.New(),
		Role:    enums.RoleAdmin,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestAdvanceLosesRace(t *testing.T) {
	repo := &stubRepo{order: orderInStatus(enums.OrderStatusProcessing), updateRows: 0}
	svc, _ := newTestService(t, repo, &stubScanLog{})

	_, err := svc.Advance(context.Background(), AdvanceInput{
		OrderID: repo.order.ID,
		Target:  enums.OrderStatusReadyForDelivery,
		ActorID: uuid.New(),
		Role:    enums.RoleFacility,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConcurrency {
		t.Fatalf("expected CONCURRENT_MODIFICATION, got %v", err)
	}
	if !pkgerrors.MetadataFor(appErr.Code()).Retryable {
		t.Fatal("concurrency loss must be retryable")
	}
}

func TestAdvanceDispatchRequiresPreloadScan(t *testing.T) {
	repo := &stubRepo{order: orderInStatus(enums.OrderStatusReadyForDelivery), updateRows: 1}
	svc, _ := newTestService(t, repo, &stubScanLog{verified: false})

	_, err := svc.Advance(context.Background(), AdvanceInput{
		OrderID: repo.order.ID,
		Target:  enums.OrderStatusInTransitToCustomer,
		ActorID: uuid.New(),
		Role:    enums.RoleDriver,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestAdvanceDispatchWithPreloadScan(t *testing.T) {
	repo := &stubRepo{order: orderInStatus(enums.OrderStatusReadyForDelivery), updateRows: 1}
	svc, emitted := newTestService(t, repo, &stubScanLog{verified: true})

	updated, err := svc.Advance(context.Background(), AdvanceInput{
		OrderID: repo.order.ID,
		Target:  enums.OrderStatusInTransitToCustomer,
		ActorID: uuid.New(),
		Role:    enums.RoleDriver,
	})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if updated.Status != enums.OrderStatusInTransitToCustomer {
		t.Fatalf("unexpected status %s", updated.Status)
	}
	if len(emitted.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitted.events))
	}
}

func TestAdvanceReleaseRequiresDecidedDiscrepancies(t *testing.T) {
	repo := &stubRepo{order: orderInStatus(enums.OrderStatusPendingItemConfirm), updateRows: 1}
	emitted := &stubOutbox{}
	svc, err := NewService(repo, stubTxRunner{}, emitted, &stubScanLog{}, &stubDiscrepancyLog{pending: 2})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.Advance(context.Background(), AdvanceInput{
		OrderID: repo.order.ID,
		Target:  enums.OrderStatusProcessing,
		ActorID: uuid.New(),
		Role:    enums.RoleAdmin,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	details, ok := appErr.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", appErr.Details())
	}
	if details["pending"] != int64(2) {
		t.Fatalf("unexpected details %+v", details)
	}
	if len(emitted.events) != 0 {
		t.Fatal("blocked release must not emit events")
	}
}

func TestAdvanceReleaseAfterLastDecision(t *testing.T) {
	repo := &stubRepo{order: orderInStatus(enums.OrderStatusPendingItemConfirm), updateRows: 1}
	svc, emitted := newTestService(t, repo, &stubScanLog{})

	updated, err := svc.Advance(context.Background(), AdvanceInput{
		OrderID: repo.order.ID,
		Target:  enums.OrderStatusProcessing,
		ActorID: uuid.New(),
		Role:    enums.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if updated.Status != enums.OrderStatusProcessing {
		t.Fatalf("unexpected status %s", updated.Status)
	}
	if len(emitted.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitted.events))
	}
}

func TestAdvanceCancelStampsAndEmits(t *testing.T) {
	repo := &stubRepo{order: orderInStatus(enums.OrderStatusAwaitingPickupCustomer), updateRows: 1}
	svc, emitted := newTestService(t, repo, &stubScanLog{})

	reason := "customer request"
	updated, err := svc.Advance(context.Background(), AdvanceInput{
		OrderID: repo.order.ID,
		Target:  enums.OrderStatusCancelled,
		ActorID: uuid.New(),
		Role:    enums.RoleCustomer,
		Reason:  &reason,
	})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if updated.CanceledAt == nil {
		t.Fatal("expected canceled_at stamp")
	}
	if _, ok := repo.capturedUpdates["canceled_at"]; !ok {
		t.Fatal("expected canceled_at in conditional update")
	}
	if len(emitted.events) != 1 || emitted.events[0].EventType != enums.EventOrderCancelled {
		t.Fatalf("expected order_cancelled event, got %+v", emitted.events)
	}
}

func TestAdvanceFullHappyRoute(t *testing.T) {
	route := []enums.OrderStatus{
		enums.OrderStatusAwaitingPickupCustomer,
		enums.OrderStatusInTransitToFacility,
		enums.OrderStatusArrivedAtFacility,
		enums.OrderStatusProcessing,
		enums.OrderStatusReadyForDelivery,
		enums.OrderStatusInTransitToCustomer,
		enums.OrderStatusDelivered,
	}

	repo := &stubRepo{order: orderInStatus(enums.OrderStatusCreated), updateRows: 1}
	svc, _ := newTestService(t, repo, &stubScanLog{verified: true})

	for _, target := range route {
		updated, err := svc.Advance(context.Background(), AdvanceInput{
			OrderID: repo.order.ID,
			Target:  target,
			ActorID: uuid.New(),
			Role:    enums.RoleSystem,
		})
		if err != nil {
			t.Fatalf("advance to %s: %v", target, err)
		}
		repo.order.Status = updated.Status
	}

	if repo.order.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", repo.order.Status)
	}
}
