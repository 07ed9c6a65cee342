package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidkorte/freshpress-backend/pkg/db/models"
	"github.com/davidkorte/freshpress-backend/pkg/pagination"
)

// Repository persists the customer inbox. Rows are written by the worker
// consuming domain events and read back through the customer endpoints.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	ListInbox(ctx context.Context, query inboxQuery) (inboxPage, error)
	MarkRead(ctx context.Context, customerID, notificationID uuid.UUID, now time.Time) (markOutcome, error)
	MarkAllRead(ctx context.Context, customerID uuid.UUID, now time.Time) (int64, error)
}

// inboxQuery scopes a keyset page of one customer's notifications.
type inboxQuery struct {
	CustomerID uuid.UUID
	Limit      int
	After      *pagination.Cursor
	UnreadOnly bool
}

// inboxPage carries one page plus the cursor for the next, nil on the last.
type inboxPage struct {
	Rows []models.Notification
	Next *pagination.Cursor
}

// markOutcome distinguishes a fresh read receipt from a repeat and from a
// notification the customer does not own.
type markOutcome int

const (
	markApplied markOutcome = iota
	markAlreadyRead
	markMissing
)

type store struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &store{db: db}
}

func (s *store) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return s
	}
	return &store{db: tx}
}

func (s *store) Create(ctx context.Context, notification *models.Notification) error {
	return s.db.WithContext(ctx).Create(notification).Error
}

func (s *store) ListInbox(ctx context.Context, query inboxQuery) (inboxPage, error) {
	limit := pagination.NormalizeLimit(query.Limit)

	scope := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("customer_id = ?", query.CustomerID)
	if query.UnreadOnly {
		scope = scope.Where("read_at IS NULL")
	}
	if query.After != nil {
		scope = scope.Where("(created_at, id) < (?, ?)", query.After.CreatedAt, query.After.ID)
	}

	// fetch one extra row to learn whether another page exists
	var rows []models.Notification
	err := scope.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&rows).Error
	if err != nil {
		return inboxPage{}, err
	}

	page := inboxPage{Rows: rows}
	if len(rows) > limit {
		page.Rows = rows[:limit]
		tail := page.Rows[limit-1]
		page.Next = &pagination.Cursor{CreatedAt: tail.CreatedAt, ID: tail.ID}
	}
	return page, nil
}

func (s *store) MarkRead(ctx context.Context, customerID, notificationID uuid.UUID, now time.Time) (markOutcome, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND customer_id = ? AND read_at IS NULL", notificationID, customerID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return markMissing, result.Error
	}
	if result.RowsAffected > 0 {
		return markApplied, nil
	}

	// nothing flipped: either already read or not this customer's notification
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND customer_id = ?", notificationID, customerID).
		Count(&count).Error
	if err != nil {
		return markMissing, err
	}
	if count == 0 {
		return markMissing, nil
	}
	return markAlreadyRead, nil
}

func (s *store) MarkAllRead(ctx context.Context, customerID uuid.UUID, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("customer_id = ? AND read_at IS NULL", customerID).
		UpdateColumn("read_at", now)
	return result.RowsAffected, result.Error
}
