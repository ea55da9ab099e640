package cart

import (
	"time"

	"github.com/google/uuid"
)

// AddItemInput adds a unit to the cart. Adding a unit that is already in the
// cart merges the quantities instead of creating a second line.
type AddItemInput struct {
	UnitID   uuid.UUID `json:"unit_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1"`
}

// SetQuantityInput overwrites the quantity of an existing line.
type SetQuantityInput struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// Line is one cart line joined with its catalog unit.
type Line struct {
	UnitID         uuid.UUID `json:"unit_id"`
	Name           string    `json:"name"`
	ImageURL       *string   `json:"image_url,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	LineTotalCents int       `json:"line_total_cents"`
	Unavailable    bool      `json:"unavailable,omitempty"`
	AddedAt        time.Time `json:"added_at"`
}

// View is the customer's cart with display totals. Totals here are advisory;
// checkout re-prices every line before an order is created.
type View struct {
	Lines         []Line `json:"lines"`
	ItemCount     int    `json:"item_count"`
	SubtotalCents int    `json:"subtotal_cents"`
}
