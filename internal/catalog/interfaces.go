package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/pkg/db/models"
)

// ProductRepository exposes persistence for products, options, and the unit view.
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository

	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Product, error)

	CreateOption(ctx context.Context, option *models.ProductOption) (*models.ProductOption, error)
	UpdateOption(ctx context.Context, option *models.ProductOption) (*models.ProductOption, error)

	FindUnit(ctx context.Context, unitID uuid.UUID) (*Unit, error)
	FindUnits(ctx context.Context, unitIDs []uuid.UUID) (map[uuid.UUID]Unit, error)
}
