package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidkorte/freshpress-backend/pkg/enums"
)

// DiscrepancyItem records an extra or missing garment found at intake, pending
// a customer decision.
type DiscrepancyItem struct {
	ID          uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID                  `gorm:"column:order_id;type:uuid;not null"`
	OrderItemID *uuid.UUID                 `gorm:"column:order_item_id;type:uuid"`
	ItemName    string                     `gorm:"column:item_name;not null"`
	ExpectedQty int                        `gorm:"column:expected_qty;not null"`
	FoundQty    int                        `gorm:"column:found_qty;not null"`
	Kind        enums.DiscrepancyKind      `gorm:"column:kind;type:discrepancy_kind;not null"`
	Reason      *string                    `gorm:"column:reason"`
	Status      enums.DiscrepancyStatus    `gorm:"column:status;type:discrepancy_status;not null;default:'pending_customer_decision'"`
	Decision    *enums.DiscrepancyDecision `gorm:"column:decision;type:discrepancy_decision"`
	DecidedAt   *time.Time                 `gorm:"column:decided_at"`
	CreatedAt   time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
