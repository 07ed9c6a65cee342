package discrepancies

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
)

func setupDiscrepanciesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	table := `
CREATE TABLE IF NOT EXISTS discrepancy_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  order_item_id TEXT,
  item_name TEXT NOT NULL,
  expected_qty INTEGER NOT NULL,
  found_qty INTEGER NOT NULL,
  kind TEXT NOT NULL,
  reason TEXT,
  status TEXT NOT NULL,
  decision TEXT,
  decided_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(table).Error)
	require.NoError(t, db.Exec("DELETE FROM discrepancy_items").Error)
	return db
}

func newPendingDiscrepancy(t *testing.T, db *gorm.DB, orderID uuid.UUID) *models.DiscrepancyItem {
	t.Helper()

	item := &models.DiscrepancyItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ItemName:    "Shirt",
		ExpectedQty: 3,
		FoundQty:    4,
		Kind:        enums.DiscrepancyKindExtra,
		Status:      enums.DiscrepancyStatusPendingDecision,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func TestMarkDecidedWinsOnce(t *testing.T) {
	db := setupDiscrepanciesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	item := newPendingDiscrepancy(t, db, uuid.New())
	decidedAt := time.Now().UTC()

	rows, err := repo.MarkDecided(ctx, item.ID, enums.DiscrepancyDecisionApproved, decidedAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.MarkDecided(ctx, item.ID, enums.DiscrepancyDecisionRejected, decidedAt)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	reloaded, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DiscrepancyStatusResolved, reloaded.Status)
	require.NotNil(t, reloaded.Decision)
	assert.Equal(t, enums.DiscrepancyDecisionApproved, *reloaded.Decision)
	require.NotNil(t, reloaded.DecidedAt)
}

func TestCountPendingByOrder(t *testing.T) {
	db := setupDiscrepanciesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	first := newPendingDiscrepancy(t, db, orderID)
	newPendingDiscrepancy(t, db, orderID)
	newPendingDiscrepancy(t, db, uuid.New())

	count, err := repo.CountPendingByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = repo.MarkDecided(ctx, first.ID, enums.DiscrepancyDecisionApproved, time.Now().UTC())
	require.NoError(t, err)

	count, err = repo.CountPendingByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestListByOrderReturnsInsertionOrder(t *testing.T) {
	db := setupDiscrepanciesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	first := newPendingDiscrepancy(t, db, orderID)
	time.Sleep(5 * time.Millisecond)
	second := newPendingDiscrepancy(t, db, orderID)

	items, err := repo.ListByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)
}
