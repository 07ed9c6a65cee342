package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidkorte/freshpress-backend/pkg/enums"
)

// CustomQuote tracks a bespoke service request through the pending → quoted →
// accepted/declined negotiation. OrderID is set exactly once on accept and is
// immutable afterwards.
type CustomQuote struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID          uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	Description         string            `gorm:"column:description;not null"`
	SuggestedPriceCents *int              `gorm:"column:suggested_price_cents"`
	QuotedPriceCents    *int              `gorm:"column:quoted_price_cents"`
	Status              enums.QuoteStatus `gorm:"column:status;type:quote_status;not null;default:'pending'"`
	OrderID             *uuid.UUID        `gorm:"column:order_id;type:uuid"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
