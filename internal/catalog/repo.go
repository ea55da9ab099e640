package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
)

// Repository persists catalog data.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateProduct inserts a product together with its options.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct saves the product row (options are managed separately).
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit("Options", "Inventory").Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindProductByID loads a product with options.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Options").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return &product, nil
}

// ListProducts pages through the catalog, newest first.
func (r *Repository) ListProducts(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Preload("Options").Order("created_at DESC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var products []models.Product
	err := query.Limit(limit).Offset(offset).Find(&products).Error
	return products, err
}

// CreateOption inserts an option under an existing product.
func (r *Repository) CreateOption(ctx context.Context, option *models.ProductOption) (*models.ProductOption, error) {
	if err := r.db.WithContext(ctx).Create(option).Error; err != nil {
		return nil, err
	}
	return option, nil
}

// UpdateOption saves the option row.
func (r *Repository) UpdateOption(ctx context.Context, option *models.ProductOption) (*models.ProductOption, error) {
	if err := r.db.WithContext(ctx).Omit("Inventory").Save(option).Error; err != nil {
		return nil, err
	}
	return option, nil
}

// FindUnit resolves a unit id against options first, then products.
func (r *Repository) FindUnit(ctx context.Context, unitID uuid.UUID) (*Unit, error) {
	units, err := r.FindUnits(ctx, []uuid.UUID{unitID})
	if err != nil {
		return nil, err
	}
	unit, ok := units[unitID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unit %s not found", unitID))
	}
	return &unit, nil
}

// FindUnitsTx resolves units on the caller's transaction so checkout reads
// prices inside its own snapshot.
func (r *Repository) FindUnitsTx(tx *gorm.DB, unitIDs []uuid.UUID) (map[uuid.UUID]Unit, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	bound := &Repository{db: tx}
	return bound.FindUnits(context.Background(), unitIDs)
}

// FindUnits resolves many unit ids in two queries. An option is only active
// when its parent product is too.
func (r *Repository) FindUnits(ctx context.Context, unitIDs []uuid.UUID) (map[uuid.UUID]Unit, error) {
	result := make(map[uuid.UUID]Unit, len(unitIDs))
	if len(unitIDs) == 0 {
		return result, nil
	}

	type optionRow struct {
		ID            uuid.UUID
		ProductID     uuid.UUID
		OptionName    string
		ProductName   string
		PriceCents    int
		OptionActive  bool
		ProductActive bool
		ImageURL      *string
	}
	var optionRows []optionRow
	err := r.db.WithContext(ctx).
		Table("product_options").
		Select(`product_options.id,
			product_options.product_id,
			product_options.name AS option_name,
			products.name AS product_name,
			product_options.price_cents,
			product_options.is_active AS option_active,
			products.is_active AS product_active,
			products.image_url`).
		Joins("JOIN products ON products.id = product_options.product_id").
		Where("product_options.id IN ?", unitIDs).
		Scan(&optionRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range optionRows {
		result[row.ID] = Unit{
			UnitID:     row.ID,
			ProductID:  row.ProductID,
			Name:       fmt.Sprintf("%s (%s)", row.ProductName, row.OptionName),
			PriceCents: row.PriceCents,
			IsActive:   row.OptionActive && row.ProductActive,
			ImageURL:   row.ImageURL,
		}
	}

	remaining := make([]uuid.UUID, 0, len(unitIDs))
	for _, id := range unitIDs {
		if _, ok := result[id]; !ok {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) == 0 {
		return result, nil
	}

	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", remaining).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = Unit{
			UnitID:     p.ID,
			ProductID:  p.ID,
			Name:       p.Name,
			PriceCents: p.PriceCents,
			IsActive:   p.IsActive,
			ImageURL:   p.ImageURL,
		}
	}
	return result, nil
}
