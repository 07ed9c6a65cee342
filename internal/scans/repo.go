package scans

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidkorte/freshpress-backend/internal/fulfillment"
	"github.com/davidkorte/freshpress-backend/pkg/db/models"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
)

// Repository exposes persistence helpers for the append-only scan log and
// proof-of-delivery rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateScanEvent(ctx context.Context, event *models.ScanEvent) error
	HasSuccessfulScan(ctx context.Context, orderID uuid.UUID, kind enums.ScanKind) (bool, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ScanEvent, error)
	CreateProof(ctx context.Context, proof *models.ProofOfDelivery) error
	FindProofByOrder(ctx context.Context, orderID uuid.UUID) (*models.ProofOfDelivery, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a scans repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateScanEvent(ctx context.Context, event *models.ScanEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repositoryImpl) HasSuccessfulScan(ctx context.Context, orderID uuid.UUID, kind enums.ScanKind) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ScanEvent{}).
		Where("order_id = ? AND kind = ? AND outcome = ?", orderID, kind, enums.ScanOutcomeOK).
		Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ScanEvent, error) {
	var events []models.ScanEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

func (r *repositoryImpl) CreateProof(ctx context.Context, proof *models.ProofOfDelivery) error {
	return r.db.WithContext(ctx).Create(proof).Error
}

func (r *repositoryImpl) FindProofByOrder(ctx context.Context, orderID uuid.UUID) (*models.ProofOfDelivery, error) {
	var proof models.ProofOfDelivery
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&proof).Error
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

// scanLogAdapter exposes the repository as the orchestrator's scan log.
type scanLogAdapter struct {
	repo Repository
}

// NewScanLog adapts the repository for the fulfillment orchestrator.
func NewScanLog(repo Repository) fulfillment.ScanLog {
	return scanLogAdapter{repo: repo}
}

func (a scanLogAdapter) WithTx(tx *gorm.DB) fulfillment.ScanLog {
	return scanLogAdapter{repo: a.repo.WithTx(tx)}
}

func (a scanLogAdapter) HasSuccessfulScan(ctx context.Context, orderID uuid.UUID, kind enums.ScanKind) (bool, error) {
	return a.repo.HasSuccessfulScan(ctx, orderID, kind)
}
