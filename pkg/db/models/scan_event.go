package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidkorte/freshpress-backend/pkg/enums"
)

// ScanEvent is an append-only record of a driver scan attempt. Rows are never
// updated after insert.
type ScanEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	Kind      enums.ScanKind    `gorm:"column:kind;type:scan_kind;not null"`
	AgentID   uuid.UUID         `gorm:"column:agent_id;type:uuid;not null"`
	Outcome   enums.ScanOutcome `gorm:"column:outcome;type:scan_outcome;not null"`
	Note      *string           `gorm:"column:note"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
