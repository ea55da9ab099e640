package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/pkg/db/models"
	"github.com/brightcart/storefront-backend/pkg/enums"
)

// Repository exposes order persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTx(tx *gorm.DB, order *models.Order) error
	NextOrderNumberTx(tx *gorm.DB) (int64, error)

	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForCustomer(ctx context.Context, customerID, id uuid.UUID) (*models.Order, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Order, error)
	List(ctx context.Context, status *enums.OrderStatus, limit, offset int) ([]models.Order, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)

	// UpdateGuardedTx applies updates only when the stored version still
	// matches. It reports false without error when another writer won.
	UpdateGuardedTx(tx *gorm.DB, orderID uuid.UUID, version int64, updates map[string]any) (bool, error)
	SetPaymentSessionTx(tx *gorm.DB, orderID uuid.UUID, sessionID, redirectURL string, expiresAt time.Time) error
	AppendHistoryTx(tx *gorm.DB, orderID uuid.UUID, status enums.OrderStatus, note *string, actor string) error
}
