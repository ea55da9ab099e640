package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/internal/catalog"
	"github.com/brightcart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
)

type fakeUnitReader struct {
	units map[uuid.UUID]catalog.Unit
}

func (f *fakeUnitReader) FindUnitsTx(_ *gorm.DB, unitIDs []uuid.UUID) (map[uuid.UUID]catalog.Unit, error) {
	result := make(map[uuid.UUID]catalog.Unit, len(unitIDs))
	for _, id := range unitIDs {
		if unit, ok := f.units[id]; ok {
			result[id] = unit
		}
	}
	return result, nil
}

type fakeStockReader struct {
	stock map[uuid.UUID]models.InventoryItem
}

func (f *fakeStockReader) GetStockManyTx(_ *gorm.DB, unitIDs []uuid.UUID) (map[uuid.UUID]models.InventoryItem, error) {
	result := make(map[uuid.UUID]models.InventoryItem, len(unitIDs))
	for _, id := range unitIDs {
		if item, ok := f.stock[id]; ok {
			result[id] = item
		}
	}
	return result, nil
}

func testTx(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:pricing_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return conn
}

func TestSnapshotPricesEveryLine(t *testing.T) {
	unitA := uuid.New()
	unitB := uuid.New()
	svc, err := NewService(
		&fakeUnitReader{units: map[uuid.UUID]catalog.Unit{
			unitA: {UnitID: unitA, Name: "Tea Sampler", PriceCents: 1500, IsActive: true},
			unitB: {UnitID: unitB, Name: "Kettle (Steel)", PriceCents: 6000, IsActive: true},
		}},
		&fakeStockReader{stock: map[uuid.UUID]models.InventoryItem{
			unitA: {UnitID: unitA, AvailableQty: 10},
			unitB: {UnitID: unitB, AvailableQty: 2},
		}},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	items := []models.CartItem{
		{CustomerID: uuid.New(), UnitID: unitA, Quantity: 2},
		{CustomerID: uuid.New(), UnitID: unitB, Quantity: 1},
	}
	snapshot, err := svc.SnapshotTx(context.Background(), testTx(t), items)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if len(snapshot.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(snapshot.Lines))
	}
	if snapshot.Lines[0].LineTotalCents != 3000 {
		t.Fatalf("expected line total 3000, got %d", snapshot.Lines[0].LineTotalCents)
	}
	if snapshot.SubtotalCents != 9000 || snapshot.TotalCents != 9000 {
		t.Fatalf("unexpected totals: subtotal=%d total=%d", snapshot.SubtotalCents, snapshot.TotalCents)
	}
	if snapshot.Lines[1].AvailableQty != 2 {
		t.Fatalf("expected availability carried through, got %d", snapshot.Lines[1].AvailableQty)
	}
}

func TestSnapshotEmptyCartFails(t *testing.T) {
	svc, err := NewService(&fakeUnitReader{}, &fakeStockReader{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.SnapshotTx(context.Background(), testTx(t), nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeEmptyCart {
		t.Fatalf("expected empty cart error, got %v", err)
	}
}

func TestSnapshotRetiredUnitIsOutOfStock(t *testing.T) {
	unitID := uuid.New()
	svc, err := NewService(
		&fakeUnitReader{units: map[uuid.UUID]catalog.Unit{
			unitID: {UnitID: unitID, Name: "Old Lamp", PriceCents: 3200, IsActive: false},
		}},
		&fakeStockReader{stock: map[uuid.UUID]models.InventoryItem{
			unitID: {UnitID: unitID, AvailableQty: 8},
		}},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.SnapshotTx(context.Background(), testTx(t), []models.CartItem{
		{CustomerID: uuid.New(), UnitID: unitID, Quantity: 1},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("expected out of stock error, got %v", err)
	}
}
