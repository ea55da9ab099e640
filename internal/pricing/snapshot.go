package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/internal/catalog"
	"github.com/brightcart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
)

// Line is one cart line priced against the catalog at snapshot time.
type Line struct {
	UnitID         uuid.UUID
	Name           string
	Quantity       int
	UnitPriceCents int
	LineTotalCents int
	AvailableQty   int
}

// Snapshot freezes prices and availability for a checkout attempt. The order
// builder copies these values onto immutable order lines so later catalog
// edits never reprice an existing order.
type Snapshot struct {
	Lines         []Line
	SubtotalCents int
	TotalCents    int
}

// UnitReader resolves catalog display and price data for units.
type UnitReader interface {
	FindUnitsTx(tx *gorm.DB, unitIDs []uuid.UUID) (map[uuid.UUID]catalog.Unit, error)
}

// StockReader resolves current counters for units.
type StockReader interface {
	GetStockManyTx(tx *gorm.DB, unitIDs []uuid.UUID) (map[uuid.UUID]models.InventoryItem, error)
}

// Service builds pricing snapshots.
type Service struct {
	units UnitReader
	stock StockReader
}

// NewService wires the snapshot service and validates its dependencies.
func NewService(units UnitReader, stock StockReader) (*Service, error) {
	if units == nil {
		return nil, fmt.Errorf("unit reader required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock reader required")
	}
	return &Service{units: units, stock: stock}, nil
}

// SnapshotTx re-reads the authoritative price and stock for every cart line on
// the caller's transaction. An empty cart fails; a retired or vanished unit
// surfaces as out of stock so the storefront tells the customer which line to
// drop.
func (s *Service) SnapshotTx(_ context.Context, tx *gorm.DB, items []models.CartItem) (*Snapshot, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	unitIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		unitIDs = append(unitIDs, item.UnitID)
	}

	units, err := s.units.FindUnitsTx(tx, unitIDs)
	if err != nil {
		return nil, err
	}
	stock, err := s.stock.GetStockManyTx(tx, unitIDs)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{Lines: make([]Line, 0, len(items))}
	for _, item := range items {
		unit, ok := units[item.UnitID]
		if !ok || !unit.IsActive {
			name := "item"
			if ok {
				name = unit.Name
			}
			return nil, pkgerrors.OutOfStock(item.UnitID.String(), name, item.Quantity, 0)
		}

		available := 0
		if counters, ok := stock[item.UnitID]; ok {
			available = counters.AvailableQty
		}

		line := Line{
			UnitID:         item.UnitID,
			Name:           unit.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: unit.PriceCents,
			LineTotalCents: unit.PriceCents * item.Quantity,
			AvailableQty:   available,
		}
		snapshot.Lines = append(snapshot.Lines, line)
		snapshot.SubtotalCents += line.LineTotalCents
	}

	// no tax or shipping yet, total mirrors the subtotal
	snapshot.TotalCents = snapshot.SubtotalCents
	return snapshot, nil
}
