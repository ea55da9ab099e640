package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brightcart/storefront-backend/pkg/enums"
)

// InventoryReservation is one unit-hold belonging to an order. The status
// column is the exactly-once guard: release and commit both flip it away from
// held with a conditional UPDATE, so only one resolution ever applies.
type InventoryReservation struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	UnitID     uuid.UUID               `gorm:"column:unit_id;type:uuid;not null"`
	Qty        int                     `gorm:"column:qty;not null"`
	Status     enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'held'"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	ReleasedAt *time.Time              `gorm:"column:released_at"`
}
