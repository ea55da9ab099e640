package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/pkg/db/models"
	"github.com/brightcart/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:inventory_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.InventoryItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	reservations := `
CREATE TABLE IF NOT EXISTS inventory_reservations (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  unit_id TEXT NOT NULL,
  qty INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'held',
  created_at DATETIME,
  released_at DATETIME
);`
	if err := conn.Exec(reservations).Error; err != nil {
		t.Fatalf("create inventory_reservations: %v", err)
	}
	t.Cleanup(func() {
		conn.Exec("DELETE FROM inventory_reservations")
		conn.Exec("DELETE FROM inventory_items")
	})
	return conn
}

func seedStock(t *testing.T, conn *gorm.DB, unitID uuid.UUID, available int) {
	t.Helper()
	if err := conn.Create(&models.InventoryItem{UnitID: unitID, AvailableQty: available}).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func loadStock(t *testing.T, conn *gorm.DB, unitID uuid.UUID) models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	if err := conn.Where("unit_id = ?", unitID).First(&item).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	return item
}

func TestReserveMovesStock(t *testing.T) {
	conn := openTestDB(t)
	ledger := NewLedger(conn)
	unitID := uuid.New()
	orderID := uuid.New()
	seedStock(t, conn, unitID, 10)

	var reservation *models.InventoryReservation
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		reservation, err = ledger.ReserveTx(tx, orderID, unitID, 3)
		return err
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	item := loadStock(t, conn, unitID)
	if item.AvailableQty != 7 || item.ReservedQty != 3 {
		t.Fatalf("unexpected counters: avail=%d reserved=%d", item.AvailableQty, item.ReservedQty)
	}
	if reservation.Status != enums.ReservationStatusHeld {
		t.Fatalf("expected held reservation, got %s", reservation.Status)
	}
}

func TestReserveInsufficientStockFails(t *testing.T) {
	conn := openTestDB(t)
	ledger := NewLedger(conn)
	unitID := uuid.New()
	seedStock(t, conn, unitID, 2)

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.ReserveTx(tx, uuid.New(), unitID, 3)
		return err
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	item := loadStock(t, conn, unitID)
	if item.AvailableQty != 2 || item.ReservedQty != 0 {
		t.Fatalf("failed reserve must not move stock: %+v", item)
	}
}

func TestReleaseIsExactlyOnce(t *testing.T) {
	conn := openTestDB(t)
	ledger := NewLedger(conn)
	unitID := uuid.New()
	orderID := uuid.New()
	seedStock(t, conn, unitID, 5)

	var reservation *models.InventoryReservation
	if err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		reservation, err = ledger.ReserveTx(tx, orderID, unitID, 5)
		return err
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var first, second bool
	if err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		first, err = ledger.ReleaseTx(tx, reservation.ID)
		return err
	}); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		second, err = ledger.ReleaseTx(tx, reservation.ID)
		return err
	}); err != nil {
		t.Fatalf("second release: %v", err)
	}

	if !first || second {
		t.Fatalf("expected first release to apply and second to no-op: first=%v second=%v", first, second)
	}
	item := loadStock(t, conn, unitID)
	if item.AvailableQty != 5 || item.ReservedQty != 0 {
		t.Fatalf("double release must not double stock: %+v", item)
	}
}

func TestCommitRemovesReservedForGood(t *testing.T) {
	conn := openTestDB(t)
	ledger := NewLedger(conn)
	unitID := uuid.New()
	orderID := uuid.New()
	seedStock(t, conn, unitID, 4)

	if err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.ReserveTx(tx, orderID, unitID, 4)
		return err
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var committed int
	if err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		committed, err = ledger.CommitAllForOrderTx(tx, orderID)
		return err
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if committed != 1 {
		t.Fatalf("expected 1 committed, got %d", committed)
	}

	item := loadStock(t, conn, unitID)
	if item.AvailableQty != 0 || item.ReservedQty != 0 {
		t.Fatalf("commit should consume reserved stock: %+v", item)
	}

	// a later release sweep must not resurrect committed stock
	var released int
	if err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		released, err = ledger.ReleaseAllForOrderTx(tx, orderID)
		return err
	}); err != nil {
		t.Fatalf("release sweep: %v", err)
	}
	if released != 0 {
		t.Fatalf("committed reservations must not release, got %d", released)
	}
}

func TestAdjustAvailableGuardsNegative(t *testing.T) {
	conn := openTestDB(t)
	ledger := NewLedger(conn)
	unitID := uuid.New()
	seedStock(t, conn, unitID, 1)

	err := conn.Transaction(func(tx *gorm.DB) error {
		return ledger.AdjustAvailableTx(tx, unitID, -2)
	})
	if err == nil {
		t.Fatal("expected guard against negative stock")
	}

	if err := conn.Transaction(func(tx *gorm.DB) error {
		return ledger.AdjustAvailableTx(tx, unitID, 9)
	}); err != nil {
		t.Fatalf("adjust up: %v", err)
	}
	if item := loadStock(t, conn, unitID); item.AvailableQty != 10 {
		t.Fatalf("expected 10 available, got %d", item.AvailableQty)
	}
}

func TestEnsureItemIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	ledger := NewLedger(conn)
	unitID := uuid.New()

	for i := 0; i < 2; i++ {
		if err := conn.Transaction(func(tx *gorm.DB) error {
			return ledger.EnsureItemTx(tx, unitID, 5)
		}); err != nil {
			t.Fatalf("ensure item (round %d): %v", i, err)
		}
	}

	item, err := ledger.GetStock(context.Background(), unitID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if item.AvailableQty != 5 {
		t.Fatalf("second ensure must not reset stock: %+v", item)
	}
}

func TestReserveDrainNeverOversells(t *testing.T) {
	conn := openTestDB(t)
	ledger := NewLedger(conn)
	unitID := uuid.New()
	const available = 7
	seedStock(t, conn, unitID, available)

	// hammer single-qty reserves past the stock level; the conditional
	// UPDATE must admit exactly `available` of them and reject the rest
	successes := 0
	for i := 0; i < available+5; i++ {
		err := conn.Transaction(func(tx *gorm.DB) error {
			_, err := ledger.ReserveTx(tx, uuid.New(), unitID, 1)
			return err
		})
		if err == nil {
			successes++
			continue
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
			t.Fatalf("reserve %d: unexpected error %v", i, err)
		}
	}

	if successes != available {
		t.Fatalf("expected exactly %d successful reserves, got %d", available, successes)
	}

	item := loadStock(t, conn, unitID)
	if item.AvailableQty != 0 || item.ReservedQty != available {
		t.Fatalf("drained unit must hold avail=0 reserved=%d, got %+v", available, item)
	}

	var held int64
	if err := conn.Model(&models.InventoryReservation{}).
		Where("unit_id = ? AND status = ?", unitID, enums.ReservationStatusHeld).
		Count(&held).Error; err != nil {
		t.Fatalf("count reservations: %v", err)
	}
	if held != available {
		t.Fatalf("expected %d held reservations, got %d", available, held)
	}
}
