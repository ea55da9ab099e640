package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
	"github.com/brightcart/storefront-backend/pkg/logger"
)

// Service defines catalog operations used by the storefront and the dashboard.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Product, error)
	AdjustStock(ctx context.Context, input AdjustStockInput) error
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StockAdjuster is the slice of the inventory ledger the catalog needs.
type StockAdjuster interface {
	EnsureItemTx(tx *gorm.DB, unitID uuid.UUID, initialQty int) error
	AdjustAvailableTx(tx *gorm.DB, unitID uuid.UUID, delta int) error
}

type service struct {
	repo  ProductRepository
	tx    TxRunner
	stock StockAdjuster
	logg  *logger.Logger
}

// NewService wires the catalog service and validates its dependencies.
func NewService(repo ProductRepository, tx TxRunner, stock StockAdjuster, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, stock: stock, logg: logg}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	product := &models.Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		PriceCents:  input.PriceCents,
		IsActive:    active,
	}
	for _, opt := range input.Options {
		product.Options = append(product.Options, models.ProductOption{
			ID:         uuid.New(),
			ProductID:  product.ID,
			Name:       opt.Name,
			PriceCents: opt.PriceCents,
			IsActive:   true,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateProduct(ctx, product); err != nil {
			return err
		}
		// inventory rows are seeded per unit: options when present, else the product
		if len(product.Options) > 0 {
			for _, opt := range product.Options {
				stock := 0
				for _, in := range input.Options {
					if in.Name == opt.Name {
						stock = in.Stock
						break
					}
				}
				if err := s.stock.EnsureItemTx(tx, opt.ID, stock); err != nil {
					return err
				}
			}
			return nil
		}
		return s.stock.EnsureItemTx(tx, product.ID, input.Stock)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithField(ctx, "product_id", product.ID.String())
	s.logg.Info(logCtx, "product created")
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.PriceCents != nil {
		product.PriceCents = *input.PriceCents
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	return s.repo.UpdateProduct(ctx, product)
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.repo.FindProductByID(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, activeOnly, limit, offset)
}

func (s *service) AdjustStock(ctx context.Context, input AdjustStockInput) error {
	if input.UnitID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit id is required")
	}
	if input.Delta == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.stock.AdjustAvailableTx(tx, input.UnitID, input.Delta)
	})
}
