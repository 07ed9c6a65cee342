package quotes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidkorte/freshpress-backend/pkg/db/models"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
	"github.com/davidkorte/freshpress-backend/pkg/pagination"
)

// Repository persists custom quotes. Status writes are conditional on the
// previously read status so concurrent negotiators serialize.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, quote *models.CustomQuote) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CustomQuote, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*QuoteList, error)
	ListByStatus(ctx context.Context, status enums.QuoteStatus, params pagination.Params) (*QuoteList, error)
	UpdateQuoteStatus(ctx context.Context, id uuid.UUID, from, to enums.QuoteStatus, updates map[string]any) (int64, error)
	// MarkAccepted links the generated order and flips the quote to accepted.
	// Conditional on status quoted and no prior order link.
	MarkAccepted(ctx context.Context, id uuid.UUID, orderID uuid.UUID) (int64, error)
}

// QuoteList is one cursor page of quotes.
type QuoteList struct {
	Quotes     []models.CustomQuote `json:"quotes"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a quotes repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, quote *models.CustomQuote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.CustomQuote, error) {
	var quote models.CustomQuote
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repositoryImpl) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*QuoteList, error) {
	query := r.db.WithContext(ctx).Model(&models.CustomQuote{}).
		Where("customer_id = ?", customerID)
	return r.page(query, params)
}

func (r *repositoryImpl) ListByStatus(ctx context.Context, status enums.QuoteStatus, params pagination.Params) (*QuoteList, error) {
	query := r.db.WithContext(ctx).Model(&models.CustomQuote{}).
		Where("status = ?", status)
	return r.page(query, params)
}

func (r *repositoryImpl) page(query *gorm.DB, params pagination.Params) (*QuoteList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
		if cursor != nil {
			query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}

	var quotes []models.CustomQuote
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}

	list := &QuoteList{Quotes: quotes}
	if len(quotes) > normalized {
		list.Quotes = quotes[:normalized]
		last := list.Quotes[len(list.Quotes)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func (r *repositoryImpl) UpdateQuoteStatus(ctx context.Context, id uuid.UUID, from, to enums.QuoteStatus, updates map[string]any) (int64, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to

	result := r.db.WithContext(ctx).Model(&models.CustomQuote{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) MarkAccepted(ctx context.Context, id uuid.UUID, orderID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.CustomQuote{}).
		Where("id = ? AND status = ? AND order_id IS NULL", id, enums.QuoteStatusQuoted).
		Updates(map[string]any{
			"status":   enums.QuoteStatusAccepted,
			"order_id": orderID,
		})
	return result.RowsAffected, result.Error
}
