package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brightcart/storefront-backend/pkg/enums"
	"github.com/brightcart/storefront-backend/pkg/types"
)

// Order is the customer order aggregate. Version backs optimistic concurrency
// on status writes.
type Order struct {
	ID                      uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber             int64                `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID              uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	Status                  enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus           enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	PaymentMethod           enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null"`
	ShippingAddress         types.Address        `gorm:"column:shipping_address;type:jsonb"`
	Notes                   *string              `gorm:"column:notes"`
	SubtotalCents           int                  `gorm:"column:subtotal_cents;not null"`
	TotalCents              int                  `gorm:"column:total_cents;not null"`
	PaymentSessionID        *string              `gorm:"column:payment_session_id"`
	PaymentRedirectURL      *string              `gorm:"column:payment_redirect_url"`
	PaymentSessionExpiresAt *time.Time           `gorm:"column:payment_session_expires_at"`
	TrackingReference       *string              `gorm:"column:tracking_reference"`
	Version                 int64                `gorm:"column:version;not null;default:0"`
	PaidAt                  *time.Time           `gorm:"column:paid_at"`
	ShippedAt               *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt             *time.Time           `gorm:"column:delivered_at"`
	CanceledAt              *time.Time           `gorm:"column:canceled_at"`
	ExpiredAt               *time.Time           `gorm:"column:expired_at"`
	Items                   []OrderLineItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History                 []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
