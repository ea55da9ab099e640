package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/internal/cart"
	"github.com/brightcart/storefront-backend/internal/orders"
	"github.com/brightcart/storefront-backend/internal/payments"
	"github.com/brightcart/storefront-backend/internal/pricing"
	"github.com/brightcart/storefront-backend/pkg/db"
	"github.com/brightcart/storefront-backend/pkg/db/models"
	"github.com/brightcart/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
	"github.com/brightcart/storefront-backend/pkg/logger"
	"github.com/brightcart/storefront-backend/pkg/metrics"
	"github.com/brightcart/storefront-backend/pkg/outbox"
	"github.com/brightcart/storefront-backend/pkg/types"
)

// orderNumberAttempts bounds transaction rebuilds when concurrent checkouts
// collide on the allocated order number.
const orderNumberAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type snapshotter interface {
	SnapshotTx(ctx context.Context, tx *gorm.DB, items []models.CartItem) (*pricing.Snapshot, error)
}

type stockReserver interface {
	ReserveTx(tx *gorm.DB, orderID, unitID uuid.UUID, qty int) (*models.InventoryReservation, error)
}

type sessionCreator interface {
	CreateSessionForOrder(ctx context.Context, order *models.Order) (*payments.Session, error)
}

// CreateOrderInput is everything checkout needs beyond the cart itself.
type CreateOrderInput struct {
	CustomerID      uuid.UUID
	ShippingAddress types.Address
	Notes           *string
	PaymentMethod   enums.PaymentMethod
}

// Result carries the committed order and its payment session.
type Result struct {
	Order   *models.Order     `json:"order"`
	Payment *payments.Session `json:"payment"`
}

// CreatedEvent is the outbox payload emitted when an order commits.
type CreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	TotalCents  int       `json:"total_cents"`
	LineCount   int       `json:"line_count"`
}

// Service turns a cart into a pending order plus a hosted payment session.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Result, error)
}

type service struct {
	carts    cart.CartRepository
	pricing  snapshotter
	stock    stockReserver
	orders   orders.Repository
	sessions sessionCreator
	outbox   outboxPublisher
	tx       txRunner
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// NewService wires the checkout service and validates its dependencies.
func NewService(
	carts cart.CartRepository,
	snap snapshotter,
	stock stockReserver,
	orderRepo orders.Repository,
	sessions sessionCreator,
	ob outboxPublisher,
	tx txRunner,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if snap == nil {
		return nil, fmt.Errorf("pricing snapshotter required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("payment session creator required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		carts:    carts,
		pricing:  snap,
		stock:    stock,
		orders:   orderRepo,
		sessions: sessions,
		outbox:   ob,
		tx:       tx,
		metrics:  checkoutMetrics,
		logg:     logg,
	}, nil
}

// CreateOrder runs the whole order build in one transaction: cart load,
// pricing snapshot, all-or-nothing stock reservation, order persistence and
// cart clear. The payment session is created after commit; a gateway failure
// leaves the committed pending order retrievable by its id.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*Result, error) {
	if input.CustomerID == uuid.Nil {
		return nil, s.fail(pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing"))
	}
	if !input.PaymentMethod.IsValid() {
		return nil, s.fail(pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method"))
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, s.fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address"))
	}

	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      input.CustomerID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusUnpaid,
		PaymentMethod:   input.PaymentMethod,
		ShippingAddress: input.ShippingAddress,
		Notes:           input.Notes,
	}

	build := func(tx *gorm.DB) error {
		order.Items = nil
		carts := s.carts.WithTx(tx)
		items, err := carts.ListByCustomer(ctx, input.CustomerID)
		if err != nil {
			return err
		}

		snapshot, err := s.pricing.SnapshotTx(ctx, tx, items)
		if err != nil {
			return err
		}

		// explicit availability check so the customer learns what is short;
		// the conditional reserve below still guards the race
		for _, line := range snapshot.Lines {
			if line.Quantity > line.AvailableQty {
				return pkgerrors.OutOfStock(line.UnitID.String(), line.Name, line.Quantity, line.AvailableQty)
			}
		}
		for _, line := range snapshot.Lines {
			if _, err := s.stock.ReserveTx(tx, order.ID, line.UnitID, line.Quantity); err != nil {
				return err
			}
		}

		number, err := s.orders.NextOrderNumberTx(tx)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		order.SubtotalCents = snapshot.SubtotalCents
		order.TotalCents = snapshot.TotalCents
		for _, line := range snapshot.Lines {
			order.Items = append(order.Items, models.OrderLineItem{
				ID:             uuid.New(),
				OrderID:        order.ID,
				UnitID:         line.UnitID,
				Name:           line.Name,
				Quantity:       line.Quantity,
				UnitPriceCents: line.UnitPriceCents,
				LineTotalCents: line.LineTotalCents,
			})
		}
		if err := s.orders.CreateTx(tx, order); err != nil {
			return err
		}
		if err := s.orders.AppendHistoryTx(tx, order.ID, enums.OrderStatusPending, nil, orders.ActorCustomer); err != nil {
			return err
		}

		if err := carts.Clear(ctx, input.CustomerID); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: CreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				TotalCents:  order.TotalCents,
				LineCount:   len(order.Items),
			},
		})
	}

	// The order number allocator reads MAX+1, so a concurrent checkout can
	// claim the same number; the unique index rejects the loser and aborts
	// its transaction. Every other insert in the build uses fresh uuids, so
	// a unique violation here can only be the order number. Rebuild in a
	// fresh transaction, which re-reads the committed winner.
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		err = s.tx.WithTx(ctx, build)
		if err == nil || !db.IsUniqueViolation(err, "") {
			break
		}
	}
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, s.fail(pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number contention, retry checkout"))
		}
		return nil, s.fail(err)
	}

	if s.metrics != nil {
		s.metrics.IncOrderCreated()
	}
	logCtx := s.logg.WithOrderID(s.logg.WithCustomerID(ctx, input.CustomerID.String()), order.ID.String())
	s.logg.Info(logCtx, "order created")

	session, err := s.sessions.CreateSessionForOrder(ctx, order)
	if err != nil {
		s.logg.Error(logCtx, "payment session creation failed", err)
		return nil, s.fail(pkgerrors.New(pkgerrors.CodeGateway, "order placed but payment link could not be issued").
			WithDetails(map[string]any{"order_id": order.ID.String()}))
	}

	persistErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.orders.SetPaymentSessionTx(tx, order.ID, session.SessionID, session.RedirectURL, session.ExpiresAt)
	})
	if persistErr != nil {
		return nil, s.fail(persistErr)
	}

	order.PaymentSessionID = &session.SessionID
	order.PaymentRedirectURL = &session.RedirectURL
	expiry := session.ExpiresAt
	order.PaymentSessionExpiresAt = &expiry
	return &Result{Order: order, Payment: session}, nil
}

func (s *service) fail(err error) error {
	if s.metrics != nil {
		code := string(pkgerrors.CodeInternal)
		if typed := pkgerrors.As(err); typed != nil {
			code = string(typed.Code())
		}
		s.metrics.IncCheckoutFailed(code)
	}
	return err
}
