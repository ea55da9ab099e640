package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one customer cart line. The (customer_id, unit_id) unique index
// backs merge-on-duplicate-add.
type CartItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:idx_cart_customer_unit"`
	UnitID     uuid.UUID `gorm:"column:unit_id;type:uuid;not null;uniqueIndex:idx_cart_customer_unit"`
	Quantity   int       `gorm:"column:quantity;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
