package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidkorte/freshpress-backend/pkg/enums"
	"github.com/davidkorte/freshpress-backend/pkg/types"
)

// Order is the root aggregate for a pickup/delivery laundry order.
type Order struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber         int64             `gorm:"column:order_number;not null"`
	CustomerID          uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	CustomerName        string            `gorm:"column:customer_name;not null"`
	CustomerPhone       *string           `gorm:"column:customer_phone"`
	CustomerEmail       *string           `gorm:"column:customer_email"`
	Status              enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'created'"`
	HasDiscrepancy      bool              `gorm:"column:has_discrepancy;not null;default:false"`
	SubtotalCents       int               `gorm:"column:subtotal_cents;not null"`
	TotalCents          int               `gorm:"column:total_cents;not null"`
	Currency            string            `gorm:"column:currency;not null;default:'EUR'"`
	PickupScheduledAt   *time.Time        `gorm:"column:pickup_scheduled_at"`
	DeliveryScheduledAt *time.Time        `gorm:"column:delivery_scheduled_at"`
	Services            *types.JSONMap    `gorm:"column:services;type:jsonb;serializer:json"`
	Notes               *string           `gorm:"column:notes"`
	DeliveredAt         *time.Time        `gorm:"column:delivered_at"`
	CanceledAt          *time.Time        `gorm:"column:canceled_at"`
	Items               []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
