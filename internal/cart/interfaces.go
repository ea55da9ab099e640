package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/internal/catalog"
	"github.com/brightcart/storefront-backend/pkg/db/models"
)

// CartRepository exposes persistence operations for cart lines.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository

	UpsertAdd(ctx context.Context, customerID, unitID uuid.UUID, qty int) (*models.CartItem, error)
	SetQuantity(ctx context.Context, customerID, unitID uuid.UUID, qty int) (*models.CartItem, error)
	Remove(ctx context.Context, customerID, unitID uuid.UUID) error
	Clear(ctx context.Context, customerID uuid.UUID) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error)
}

// UnitFinder is the slice of the catalog the cart needs.
type UnitFinder interface {
	FindUnit(ctx context.Context, unitID uuid.UUID) (*catalog.Unit, error)
	FindUnits(ctx context.Context, unitIDs []uuid.UUID) (map[uuid.UUID]catalog.Unit, error)
}
