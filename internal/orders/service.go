package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/pkg/db/models"
	"github.com/brightcart/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
	"github.com/brightcart/storefront-backend/pkg/logger"
	"github.com/brightcart/storefront-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StockResolver settles an order's reservations when its lifecycle resolves.
type StockResolver interface {
	ReleaseAllForOrderTx(tx *gorm.DB, orderID uuid.UUID) (int, error)
	CommitAllForOrderTx(tx *gorm.DB, orderID uuid.UUID) (int, error)
}

// Service owns the order lifecycle. Every transition is version-guarded and
// leaves a status history row; payment-only changes never move the lifecycle.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Order, error)
	List(ctx context.Context, input ListInput) ([]models.Order, error)

	Ship(ctx context.Context, input ShipInput) error
	Deliver(ctx context.Context, orderID uuid.UUID, note *string) error
	Cancel(ctx context.Context, input CancelInput) error
	Expire(ctx context.Context, orderID uuid.UUID) error

	// Tx variants run on the caller's transaction so webhook reconciliation
	// commits its effects together with the processed-event row.
	MarkPaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	MarkPaymentFailedTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	RefundTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	stock  StockResolver
	logg   *logger.Logger
}

// NewService wires the order service and validates its dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, stock StockResolver, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, outbox: ob, stock: stock, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, orderID)
}

func (s *service) GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindForCustomer(ctx, customerID, orderID)
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	return s.repo.ListForCustomer(ctx, customerID, limit, offset)
}

func (s *service) List(ctx context.Context, input ListInput) ([]models.Order, error) {
	return s.repo.List(ctx, input.Status, input.Limit, input.Offset)
}

// transition describes one lifecycle move. guard runs after the machine check
// for role rules, extraUpdates add columns beyond status, resolve settles
// reservations once the write landed.
type transition struct {
	target       enums.OrderStatus
	actor        string
	note         *string
	event        enums.OutboxEventType
	guard        func(order *models.Order) error
	extraUpdates func(order *models.Order, now time.Time) map[string]any
	resolve      func(tx *gorm.DB, orderID uuid.UUID) error
}

// applyTx drives a transition with the optimistic version guard. A lost race
// reloads and retries once; losing twice surfaces a conflict.
func (s *service) applyTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, tr transition) error {
	repo := s.repo.WithTx(tx)

	for attempt := 0; attempt < 2; attempt++ {
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(tr.target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, tr.target))
		}
		if tr.guard != nil {
			if err := tr.guard(order); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": tr.target}
		if tr.extraUpdates != nil {
			for column, value := range tr.extraUpdates(order, now) {
				updates[column] = value
			}
		}

		ok, err := repo.UpdateGuardedTx(tx, order.ID, order.Version, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			continue
		}

		if err := repo.AppendHistoryTx(tx, order.ID, tr.target, tr.note, tr.actor); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}
		if tr.resolve != nil {
			if err := tr.resolve(tx, order.ID); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     tr.event,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: StatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				FromStatus:  order.Status,
				ToStatus:    tr.target,
				TotalCents:  order.TotalCents,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "status", string(tr.target)), "order status changed")
		return nil
	}

	return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently, try again")
}

func (s *service) apply(ctx context.Context, orderID uuid.UUID, tr transition) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.applyTx(ctx, tx, orderID, tr)
	})
}

func (s *service) Ship(ctx context.Context, input ShipInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.TrackingReference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracking reference required to ship")
	}
	return s.apply(ctx, input.OrderID, transition{
		target: enums.OrderStatusShipped,
		actor:  ActorMerchant,
		note:   input.Note,
		event:  enums.EventOrderShipped,
		extraUpdates: func(_ *models.Order, now time.Time) map[string]any {
			return map[string]any{
				"tracking_reference": input.TrackingReference,
				"shipped_at":         now,
			}
		},
		resolve: func(tx *gorm.DB, orderID uuid.UUID) error {
			_, err := s.stock.CommitAllForOrderTx(tx, orderID)
			return err
		},
	})
}

func (s *service) Deliver(ctx context.Context, orderID uuid.UUID, note *string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.apply(ctx, orderID, transition{
		target: enums.OrderStatusDelivered,
		actor:  ActorMerchant,
		note:   note,
		event:  enums.EventOrderDelivered,
		extraUpdates: func(_ *models.Order, now time.Time) map[string]any {
			return map[string]any{"delivered_at": now}
		},
	})
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	actor := input.Actor
	if actor == "" {
		actor = ActorCustomer
	}
	return s.apply(ctx, input.OrderID, transition{
		target: enums.OrderStatusCancelled,
		actor:  actor,
		note:   input.Note,
		event:  enums.EventOrderCancelled,
		guard: func(order *models.Order) error {
			if order.Status == enums.OrderStatusProcessing && !input.IsMerchant {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "only the merchant can cancel a processing order")
			}
			return nil
		},
		extraUpdates: func(_ *models.Order, now time.Time) map[string]any {
			return map[string]any{"canceled_at": now}
		},
		resolve: func(tx *gorm.DB, orderID uuid.UUID) error {
			_, err := s.stock.ReleaseAllForOrderTx(tx, orderID)
			return err
		},
	})
}

func (s *service) Expire(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.apply(ctx, orderID, transition{
		target: enums.OrderStatusExpired,
		actor:  ActorSweeper,
		event:  enums.EventOrderExpired,
		extraUpdates: func(_ *models.Order, now time.Time) map[string]any {
			return map[string]any{"expired_at": now}
		},
		resolve: func(tx *gorm.DB, orderID uuid.UUID) error {
			_, err := s.stock.ReleaseAllForOrderTx(tx, orderID)
			return err
		},
	})
}

// MarkPaidTx settles a successful payment: pending/unpaid becomes
// paid/processing. An order that is already paid is a silent no-op so
// redelivered webhooks stay harmless.
func (s *service) MarkPaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil
	}
	return s.applyTx(ctx, tx, orderID, transition{
		target: enums.OrderStatusProcessing,
		actor:  ActorWebhook,
		event:  enums.EventOrderPaid,
		extraUpdates: func(_ *models.Order, now time.Time) map[string]any {
			return map[string]any{
				"payment_status": enums.PaymentStatusPaid,
				"paid_at":        now,
			}
		},
	})
}

// MarkPaymentFailedTx records the failed attempt. The order stays pending so
// the customer can retry through a fresh payment link.
func (s *service) MarkPaymentFailedTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentStatus != enums.PaymentStatusUnpaid {
		return nil
	}

	ok, err := repo.UpdateGuardedTx(tx, order.ID, order.Version, map[string]any{
		"payment_status": enums.PaymentStatusFailed,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment failure")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently, try again")
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPaymentFailed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data: PaymentEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerID:    order.CustomerID,
			PaymentStatus: enums.PaymentStatusFailed,
			TotalCents:    order.TotalCents,
		},
	})
}

// RefundTx flips the payment status to refunded and hands the order's held
// stock back. The reservation status guard keeps a replayed refund from
// restocking twice.
func (s *service) RefundTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentStatus == enums.PaymentStatusRefunded {
		return nil
	}

	ok, err := repo.UpdateGuardedTx(tx, order.ID, order.Version, map[string]any{
		"payment_status": enums.PaymentStatusRefunded,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently, try again")
	}

	if _, err := s.stock.ReleaseAllForOrderTx(tx, orderID); err != nil {
		return err
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderRefunded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data: PaymentEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerID:    order.CustomerID,
			PaymentStatus: enums.PaymentStatusRefunded,
			TotalCents:    order.TotalCents,
		},
	})
}
