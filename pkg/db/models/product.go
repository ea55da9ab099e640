package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a storefront listing. A product without options is itself
// the purchasable unit; otherwise each ProductOption is.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Description *string         `gorm:"column:description"`
	ImageURL    *string         `gorm:"column:image_url"`
	PriceCents  int             `gorm:"column:price_cents;not null"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	Options     []ProductOption `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Inventory   *InventoryItem  `gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
