package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/internal/catalog"
	"github.com/brightcart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
	"github.com/brightcart/storefront-backend/pkg/logger"
)

// Service defines the cart operations exposed to customers.
type Service interface {
	AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*View, error)
	SetQuantity(ctx context.Context, customerID, unitID uuid.UUID, input SetQuantityInput) (*View, error)
	RemoveItem(ctx context.Context, customerID, unitID uuid.UUID) (*View, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
	Get(ctx context.Context, customerID uuid.UUID) (*View, error)

	// ClearTx empties the cart on the caller's transaction. Checkout uses it
	// so the cart only clears when the order commits.
	ClearTx(tx *gorm.DB, customerID uuid.UUID) error
}

type service struct {
	repo  CartRepository
	units UnitFinder
	logg  *logger.Logger
}

// NewService wires the cart service and validates its dependencies.
func NewService(repo CartRepository, units UnitFinder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if units == nil {
		return nil, fmt.Errorf("unit finder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, units: units, logg: logg}, nil
}

func (s *service) AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*View, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	unit, err := s.units.FindUnit(ctx, input.UnitID)
	if err != nil {
		return nil, err
	}
	if !unit.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit is not available for purchase")
	}

	if _, err := s.repo.UpsertAdd(ctx, customerID, input.UnitID, input.Quantity); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithCustomerID(ctx, customerID.String())
	s.logg.Info(s.logg.WithField(logCtx, "unit_id", input.UnitID.String()), "cart item added")
	return s.Get(ctx, customerID)
}

func (s *service) SetQuantity(ctx context.Context, customerID, unitID uuid.UUID, input SetQuantityInput) (*View, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if _, err := s.repo.SetQuantity(ctx, customerID, unitID, input.Quantity); err != nil {
		return nil, err
	}
	return s.Get(ctx, customerID)
}

func (s *service) RemoveItem(ctx context.Context, customerID, unitID uuid.UUID) (*View, error) {
	if err := s.repo.Remove(ctx, customerID, unitID); err != nil {
		return nil, err
	}
	return s.Get(ctx, customerID)
}

func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	return s.repo.Clear(ctx, customerID)
}

func (s *service) ClearTx(tx *gorm.DB, customerID uuid.UUID) error {
	return s.repo.WithTx(tx).Clear(context.Background(), customerID)
}

// Get joins the stored lines with live catalog data. Lines whose unit has been
// deactivated or removed since they were added stay visible but are flagged so
// the storefront can prompt the customer to drop them.
func (s *service) Get(ctx context.Context, customerID uuid.UUID) (*View, error) {
	items, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	view := &View{Lines: make([]Line, 0, len(items))}
	if len(items) == 0 {
		return view, nil
	}

	unitIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		unitIDs = append(unitIDs, item.UnitID)
	}
	units, err := s.units.FindUnits(ctx, unitIDs)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		line := buildLine(item, units)
		view.Lines = append(view.Lines, line)
		view.ItemCount += line.Quantity
		if !line.Unavailable {
			view.SubtotalCents += line.LineTotalCents
		}
	}
	return view, nil
}

func buildLine(item models.CartItem, units map[uuid.UUID]catalog.Unit) Line {
	line := Line{
		UnitID:   item.UnitID,
		Quantity: item.Quantity,
		AddedAt:  item.CreatedAt,
	}
	unit, ok := units[item.UnitID]
	if !ok || !unit.IsActive {
		line.Unavailable = true
		if ok {
			line.Name = unit.Name
		}
		return line
	}
	line.Name = unit.Name
	line.ImageURL = unit.ImageURL
	line.UnitPriceCents = unit.PriceCents
	line.LineTotalCents = unit.PriceCents * item.Quantity
	return line
}
