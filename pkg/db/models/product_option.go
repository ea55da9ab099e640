package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductOption is a purchasable variant of a product (size, color). Its ID
// doubles as the inventory unit id.
type ProductOption struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID      `gorm:"column:product_id;type:uuid;not null"`
	Name       string         `gorm:"column:name;not null"`
	PriceCents int            `gorm:"column:price_cents;not null"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true"`
	Inventory  *InventoryItem `gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
