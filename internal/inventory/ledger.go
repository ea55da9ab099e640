package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brightcart/storefront-backend/pkg/db/models"
	"github.com/brightcart/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
)

// Ledger owns the per-unit stock counters and the reservation rows that hold
// stock for an order. All mutating operations run on the caller's transaction
// so a checkout can reserve several units all-or-nothing.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs the inventory ledger bound to the provided DB.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// EnsureItemTx creates the counter row for a new unit if it does not exist.
func (l *Ledger) EnsureItemTx(tx *gorm.DB, unitID uuid.UUID, initialQty int) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if initialQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "initial quantity cannot be negative")
	}
	item := models.InventoryItem{UnitID: unitID, AvailableQty: initialQty}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error
}

// AdjustAvailableTx moves the available counter by a signed delta. Negative
// deltas are guarded so stock never goes below zero.
func (l *Ledger) AdjustAvailableTx(tx *gorm.DB, unitID uuid.UUID, delta int) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	res := tx.Exec(`
		UPDATE inventory_items
		SET available_qty = available_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE unit_id = ? AND available_qty + ? >= 0
	`, delta, unitID, delta)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("unit %s stock cannot go negative", unitID))
	}
	return nil
}

// ReserveTx atomically moves qty from available to reserved and records a held
// reservation for the order. The conditional WHERE is the only stock check;
// a concurrent checkout that drains the shelf first makes this one fail.
func (l *Ledger) ReserveTx(tx *gorm.DB, orderID, unitID uuid.UUID, qty int) (*models.InventoryReservation, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.Exec(`
		UPDATE inventory_items
		SET available_qty = available_qty - ?,
			reserved_qty = reserved_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE unit_id = ? AND available_qty >= ?
	`, qty, qty, unitID, qty)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("unit %s has insufficient stock for %d", unitID, qty)).
			WithDetails(map[string]any{"unit_id": unitID.String(), "requested": qty})
	}

	reservation := &models.InventoryReservation{
		ID:      uuid.New(),
		OrderID: orderID,
		UnitID:  unitID,
		Qty:     qty,
		Status:  enums.ReservationStatusHeld,
	}
	if err := tx.Create(reservation).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
	}
	return reservation, nil
}

// ReleaseTx returns one reservation's stock to the shelf. The status flip from
// held is the exactly-once guard: a reservation already released or committed
// is left untouched and the call reports false.
func (l *Ledger) ReleaseTx(tx *gorm.DB, reservationID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}

	var reservation models.InventoryReservation
	if err := tx.Where("id = ?", reservationID).First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return false, err
	}

	flip := tx.Model(&models.InventoryReservation{}).
		Where("id = ? AND status = ?", reservationID, enums.ReservationStatusHeld).
		Updates(map[string]any{
			"status":      enums.ReservationStatusReleased,
			"released_at": time.Now().UTC(),
		})
	if flip.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, flip.Error, "release reservation")
	}
	if flip.RowsAffected == 0 {
		return false, nil
	}

	res := tx.Exec(`
		UPDATE inventory_items
		SET available_qty = available_qty + ?,
			reserved_qty = reserved_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE unit_id = ? AND reserved_qty >= ?
	`, reservation.Qty, reservation.Qty, reservation.UnitID, reservation.Qty)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "return stock")
	}
	return true, nil
}

// CommitTx marks a held reservation as committed and removes the reserved
// count for good. Used when the order ships.
func (l *Ledger) CommitTx(tx *gorm.DB, reservationID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}

	var reservation models.InventoryReservation
	if err := tx.Where("id = ?", reservationID).First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return false, err
	}

	flip := tx.Model(&models.InventoryReservation{}).
		Where("id = ? AND status = ?", reservationID, enums.ReservationStatusHeld).
		Update("status", enums.ReservationStatusCommitted)
	if flip.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, flip.Error, "commit reservation")
	}
	if flip.RowsAffected == 0 {
		return false, nil
	}

	res := tx.Exec(`
		UPDATE inventory_items
		SET reserved_qty = reserved_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE unit_id = ? AND reserved_qty >= ?
	`, reservation.Qty, reservation.UnitID, reservation.Qty)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "commit stock")
	}
	return true, nil
}

// ReleaseAllForOrderTx releases every held reservation of the order and
// reports how many actually flipped.
func (l *Ledger) ReleaseAllForOrderTx(tx *gorm.DB, orderID uuid.UUID) (int, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	var reservations []models.InventoryReservation
	if err := tx.Where("order_id = ? AND status = ?", orderID, enums.ReservationStatusHeld).Find(&reservations).Error; err != nil {
		return 0, err
	}
	released := 0
	for _, reservation := range reservations {
		ok, err := l.ReleaseTx(tx, reservation.ID)
		if err != nil {
			return released, err
		}
		if ok {
			released++
		}
	}
	return released, nil
}

// CommitAllForOrderTx commits every held reservation of the order.
func (l *Ledger) CommitAllForOrderTx(tx *gorm.DB, orderID uuid.UUID) (int, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	var reservations []models.InventoryReservation
	if err := tx.Where("order_id = ? AND status = ?", orderID, enums.ReservationStatusHeld).Find(&reservations).Error; err != nil {
		return 0, err
	}
	committed := 0
	for _, reservation := range reservations {
		ok, err := l.CommitTx(tx, reservation.ID)
		if err != nil {
			return committed, err
		}
		if ok {
			committed++
		}
	}
	return committed, nil
}

// GetStock reads the current counters for a unit.
func (l *Ledger) GetStock(ctx context.Context, unitID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := l.db.WithContext(ctx).Where("unit_id = ?", unitID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, err
	}
	return &item, nil
}

// GetStockManyTx loads counters for several units on the caller's transaction.
func (l *Ledger) GetStockManyTx(tx *gorm.DB, unitIDs []uuid.UUID) (map[uuid.UUID]models.InventoryItem, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	bound := &Ledger{db: tx}
	return bound.GetStockMany(context.Background(), unitIDs)
}

// GetStockMany loads counters for several units at once.
func (l *Ledger) GetStockMany(ctx context.Context, unitIDs []uuid.UUID) (map[uuid.UUID]models.InventoryItem, error) {
	result := make(map[uuid.UUID]models.InventoryItem, len(unitIDs))
	if len(unitIDs) == 0 {
		return result, nil
	}
	var items []models.InventoryItem
	if err := l.db.WithContext(ctx).Where("unit_id IN ?", unitIDs).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		result[item.UnitID] = item
	}
	return result, nil
}
