package catalog

import "github.com/google/uuid"

// Unit is the purchasable view over products and product options. A product
// without options sells under its own id; each option sells under the option
// id with a combined display name.
type Unit struct {
	UnitID     uuid.UUID `json:"unit_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Name       string    `json:"name"`
	PriceCents int       `json:"price_cents"`
	IsActive   bool      `json:"is_active"`
	ImageURL   *string   `json:"image_url,omitempty"`
}
