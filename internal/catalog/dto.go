package catalog

import "github.com/google/uuid"

// CreateProductInput is the admin payload for a new listing.
type CreateProductInput struct {
	Name        string              `json:"name" validate:"required,min=1,max=200"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=5000"`
	ImageURL    *string             `json:"image_url,omitempty" validate:"omitempty,url"`
	PriceCents  int                 `json:"price_cents" validate:"required,gt=0"`
	IsActive    *bool               `json:"is_active,omitempty"`
	Stock       int                 `json:"stock" validate:"gte=0"`
	Options     []CreateOptionInput `json:"options,omitempty" validate:"omitempty,dive"`
}

// CreateOptionInput describes one purchasable variant.
type CreateOptionInput struct {
	Name       string `json:"name" validate:"required,min=1,max=200"`
	PriceCents int    `json:"price_cents" validate:"required,gt=0"`
	Stock      int    `json:"stock" validate:"gte=0"`
}

// UpdateProductInput carries partial product edits.
type UpdateProductInput struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
	PriceCents  *int    `json:"price_cents,omitempty" validate:"omitempty,gt=0"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// AdjustStockInput moves a unit's available quantity by a signed delta.
type AdjustStockInput struct {
	UnitID uuid.UUID `json:"unit_id" validate:"required"`
	Delta  int       `json:"delta" validate:"required"`
}
