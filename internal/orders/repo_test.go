package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/davidkorte/freshpress-backend/pkg/db/models"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
	"github.com/davidkorte/freshpress-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ordersTable := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL,
  customer_id TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  customer_phone TEXT,
  customer_email TEXT,
  status TEXT NOT NULL,
  has_discrepancy INTEGER NOT NULL DEFAULT 0,
  subtotal_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  pickup_scheduled_at DATETIME,
  delivery_scheduled_at DATETIME,
  services TEXT,
  notes TEXT,
  delivered_at DATETIME,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	itemsTable := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ordersTable).Error)
	require.NoError(t, db.Exec(itemsTable).Error)
	return db
}

func newTestOrder(t *testing.T, db *gorm.DB, number int64, status enums.OrderStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		CustomerID:    uuid.New(),
		CustomerName:  "Marta Keller",
		Status:        status,
		SubtotalCents: 5850,
		TotalCents:    5850,
		Currency:      "EUR",
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestConditionalStatusUpdateWinsOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := newTestOrder(t, db, 1001, enums.OrderStatusProcessing)

	rows, err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusProcessing, enums.OrderStatusReadyForDelivery, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// second writer read the same processing status; the row has moved on
	rows, err = repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusProcessing, enums.OrderStatusReadyForDelivery, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	reloaded, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReadyForDelivery, reloaded.Status)
}

func TestConditionalStatusUpdateCarriesExtraColumns(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := newTestOrder(t, db, 1002, enums.OrderStatusInTransitToCustomer)
	deliveredAt := time.Now().UTC()

	rows, err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusInTransitToCustomer, enums.OrderStatusDelivered, map[string]any{
		"delivered_at": deliveredAt,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	reloaded, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, reloaded.Status)
	require.NotNil(t, reloaded.DeliveredAt)
}

func TestFindOrderPreloadsItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := newTestOrder(t, db, 1003, enums.OrderStatusCreated)
	items := []models.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, Name: "shirt", Qty: 5, UnitPriceCents: 250, SubtotalCents: 1250},
		{ID: uuid.New(), OrderID: order.ID, Name: "trousers", Qty: 2, UnitPriceCents: 400, SubtotalCents: 800},
	}
	require.NoError(t, repo.CreateOrderItems(ctx, items))

	reloaded, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Items, 2)
}

func TestFindOrderByNumber(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := newTestOrder(t, db, 2044, enums.OrderStatusAwaitingPickupCustomer)

	found, err := repo.FindOrderByNumber(ctx, 2044)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindOrderByNumber(ctx, 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListCustomerOrdersPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		order := &models.Order{
			ID:            uuid.New(),
			OrderNumber:   int64(3000 + i),
			CustomerID:    customerID,
			CustomerName:  "Marta Keller",
			Status:        enums.OrderStatusCreated,
			SubtotalCents: 1000,
			TotalCents:    1000,
			Currency:      "EUR",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(order).Error)
	}

	page, err := repo.ListCustomerOrders(ctx, customerID, pagination.Params{Limit: 2}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)
	assert.Equal(t, int64(3002), page.Orders[0].OrderNumber)

	rest, err := repo.ListCustomerOrders(ctx, customerID, pagination.Params{Limit: 2, Cursor: page.NextCursor}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Empty(t, rest.NextCursor)
	assert.Equal(t, int64(3000), rest.Orders[0].OrderNumber)
}
