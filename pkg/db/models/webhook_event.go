package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent records a processed provider event. The unique provider event
// id makes webhook reconciliation idempotent under at-least-once delivery.
type WebhookEvent struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderEventID string     `gorm:"column:provider_event_id;not null;uniqueIndex"`
	EventType       string     `gorm:"column:event_type;not null"`
	OrderID         *uuid.UUID `gorm:"column:order_id;type:uuid"`
	ReceivedAt      time.Time  `gorm:"column:received_at;autoCreateTime"`
}
