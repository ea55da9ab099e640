package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/pkg/db/models"
	"github.com/brightcart/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
)

const firstOrderNumber = 1001

type repository struct {
	db *gorm.DB
}

// NewRepository constructs an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateTx inserts the order aggregate, line items and history included.
func (r *repository) CreateTx(tx *gorm.DB, order *models.Order) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(order).Error
}

// NextOrderNumberTx allocates the next human-facing order number. Concurrent
// transactions can read the same MAX; the unique index rejects the loser, so
// callers must treat a unique violation on insert as a retryable allocation.
func (r *repository) NextOrderNumberTx(tx *gorm.DB) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	var next int64
	err := tx.Raw(
		"SELECT COALESCE(MAX(order_number), ?) + 1 FROM orders",
		firstOrderNumber-1,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindForCustomer(ctx context.Context, customerID, id uuid.UUID) (*models.Order, error) {
	order, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (r *repository) ListForCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *repository) List(ctx context.Context, status *enums.OrderStatus, limit, offset int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Preload("Items").Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var list []models.Order
	err := query.Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// ListExpiredPending finds pending orders whose payment session lapsed before
// the cutoff. Orders without a session are left alone.
func (r *repository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPending).
		Where("payment_session_expires_at IS NOT NULL AND payment_session_expires_at < ?", cutoff).
		Order("payment_session_expires_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *repository) UpdateGuardedTx(tx *gorm.DB, orderID uuid.UUID, version int64, updates map[string]any) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	updates["version"] = version + 1
	res := tx.Model(&models.Order{}).
		Where("id = ? AND version = ?", orderID, version).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetPaymentSessionTx(tx *gorm.DB, orderID uuid.UUID, sessionID, redirectURL string, expiresAt time.Time) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"payment_session_id":         sessionID,
			"payment_redirect_url":       redirectURL,
			"payment_session_expires_at": expiresAt,
		}).Error
}

func (r *repository) AppendHistoryTx(tx *gorm.DB, orderID uuid.UUID, status enums.OrderStatus, note *string, actor string) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	row := models.OrderStatusHistory{
		ID:      uuid.New(),
		OrderID: orderID,
		Status:  status,
		Note:    note,
		Actor:   actor,
	}
	return tx.Create(&row).Error
}
