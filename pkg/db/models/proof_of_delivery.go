package models

import (
	"time"

	"github.com/google/uuid"
)

// ProofOfDelivery closes out a delivered order. At most one row per order.
type ProofOfDelivery struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uq_pod_order"`
	AgentID     uuid.UUID `gorm:"column:agent_id;type:uuid;not null"`
	Note        *string   `gorm:"column:note"`
	PhotoURL    *string   `gorm:"column:photo_url"`
	DeliveredAt time.Time `gorm:"column:delivered_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
