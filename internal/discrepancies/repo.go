package discrepancies

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidkorte/freshpress-backend/internal/fulfillment"
	"github.com/davidkorte/freshpress-backend/pkg/db/models"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
)

// Repository persists facility-reported mismatches and their decisions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.DiscrepancyItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DiscrepancyItem, error)
	// MarkDecided flips a pending discrepancy to resolved. The write is
	// conditional on the pending status; zero rows affected means the
	// discrepancy was already decided.
	MarkDecided(ctx context.Context, id uuid.UUID, decision enums.DiscrepancyDecision, decidedAt time.Time) (int64, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DiscrepancyItem, error)
	CountPendingByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a discrepancies repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, item *models.DiscrepancyItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.DiscrepancyItem, error) {
	var item models.DiscrepancyItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repositoryImpl) MarkDecided(ctx context.Context, id uuid.UUID, decision enums.DiscrepancyDecision, decidedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.DiscrepancyItem{}).
		Where("id = ? AND status = ?", id, enums.DiscrepancyStatusPendingDecision).
		Updates(map[string]any{
			"status":     enums.DiscrepancyStatusResolved,
			"decision":   decision,
			"decided_at": decidedAt,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DiscrepancyItem, error) {
	var items []models.DiscrepancyItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *repositoryImpl) CountPendingByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DiscrepancyItem{}).
		Where("order_id = ? AND status = ?", orderID, enums.DiscrepancyStatusPendingDecision).
		Count(&count).Error
	return count, err
}

// discrepancyLogAdapter exposes the repository as the orchestrator's
// discrepancy log.
type discrepancyLogAdapter struct {
	repo Repository
}

// NewDiscrepancyLog adapts the repository for the fulfillment orchestrator.
func NewDiscrepancyLog(repo Repository) fulfillment.DiscrepancyLog {
	return discrepancyLogAdapter{repo: repo}
}

func (a discrepancyLogAdapter) WithTx(tx *gorm.DB) fulfillment.DiscrepancyLog {
	return discrepancyLogAdapter{repo: a.repo.WithTx(tx)}
}

func (a discrepancyLogAdapter) CountPendingByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return a.repo.CountPendingByOrder(ctx, orderID)
}
