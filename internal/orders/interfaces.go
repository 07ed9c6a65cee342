package orders

import (
	"context"

	"github.com/davidkorte/freshpress-backend/pkg/db/models"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
	"github.com/davidkorte/freshpress-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// FindOrderForUpdate loads the order under a row lock, serializing the
	// callers' transactions on that order until commit.
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderByNumber(ctx context.Context, orderNumber int64) (*models.Order, error)
	FindOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	// UpdateOrderStatus applies a conditional status write keyed on the status
	// the caller read. Zero rows affected means another writer got there first.
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (int64, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateOrderItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	NextOrderNumber(ctx context.Context) (int64, error)
}
