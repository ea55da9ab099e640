package orders

import (
	"github.com/google/uuid"

	"github.com/brightcart/storefront-backend/pkg/enums"
)

// Actor labels recorded on order status history rows.
const (
	ActorCustomer = "customer"
	ActorMerchant = "merchant"
	ActorWebhook  = "square_webhook"
	ActorSweeper  = "expiry_sweep"
)

// ShipInput moves a processing order to shipped. The tracking reference is
// required and lands on the order in the same write.
type ShipInput struct {
	OrderID           uuid.UUID
	TrackingReference string `validate:"required"`
	Note              *string
}

// CancelInput cancels an order. Customers may only cancel while pending;
// merchants may also cancel processing orders.
type CancelInput struct {
	OrderID    uuid.UUID
	Actor      string
	IsMerchant bool
	Note       *string
}

// ListInput filters the dashboard order listing.
type ListInput struct {
	Status *enums.OrderStatus
	Limit  int
	Offset int
}

// StatusChangedEvent is the outbox payload for every lifecycle transition.
type StatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber int64             `json:"order_number"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	TotalCents  int               `json:"total_cents"`
}

// PaymentEvent is the outbox payload for payment status changes that leave
// the lifecycle untouched.
type PaymentEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   int64               `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TotalCents    int                 `json:"total_cents"`
}
