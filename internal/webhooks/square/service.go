package square

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/pkg/db"
	"github.com/brightcart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
	"github.com/brightcart/storefront-backend/pkg/logger"
	"github.com/brightcart/storefront-backend/pkg/metrics"
)

// Event kinds delivered by the payment provider.
const (
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
	EventRefunded         = "refunded"
)

// Event is the decoded provider notification.
type Event struct {
	EventID string    `json:"event_id"`
	Type    string    `json:"type"`
	Data    EventData `json:"data"`
}

// EventData carries the correlation ids of the notification.
type EventData struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

// Outcome describes what reconciliation did with an event.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeConflict  Outcome = "conflict"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderReconciler is the slice of the order service the handler drives.
type OrderReconciler interface {
	MarkPaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	MarkPaymentFailedTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	RefundTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// Service reconciles provider payment events against orders. The processed
// event row and the order effects share one transaction, so a crash between
// them cannot strand a half-applied event.
type Service interface {
	Process(ctx context.Context, event Event) (Outcome, error)
}

type service struct {
	orders  OrderReconciler
	tx      txRunner
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

// NewService wires the reconciliation service and validates its dependencies.
func NewService(orders OrderReconciler, tx txRunner, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order reconciler required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{orders: orders, tx: tx, metrics: checkoutMetrics, logg: logg}, nil
}

func (s *service) Process(ctx context.Context, event Event) (Outcome, error) {
	eventID := strings.TrimSpace(event.EventID)
	if eventID == "" {
		return OutcomeIgnored, pkgerrors.New(pkgerrors.CodeValidation, "event id missing")
	}

	orderID, err := uuid.Parse(strings.TrimSpace(event.Data.OrderID))
	if err != nil {
		return OutcomeIgnored, pkgerrors.New(pkgerrors.CodeValidation, "event order id is not a uuid")
	}

	outcome := OutcomeProcessed
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		row := models.WebhookEvent{
			ID:              uuid.New(),
			ProviderEventID: eventID,
			EventType:       event.Type,
			OrderID:         &orderID,
		}
		if err := tx.Create(&row).Error; err != nil {
			if db.IsUniqueViolation(err, "idx_webhook_events_provider_event") {
				outcome = OutcomeDuplicate
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record webhook event")
		}

		var applyErr error
		switch event.Type {
		case EventPaymentSucceeded:
			applyErr = s.orders.MarkPaidTx(ctx, tx, orderID)
		case EventPaymentFailed:
			applyErr = s.orders.MarkPaymentFailedTx(ctx, tx, orderID)
		case EventRefunded:
			applyErr = s.orders.RefundTx(ctx, tx, orderID)
		default:
			outcome = OutcomeIgnored
			return nil
		}

		if applyErr != nil {
			typed := pkgerrors.As(applyErr)
			if typed != nil {
				switch typed.Code() {
				case pkgerrors.CodeNotFound:
					// payment for an order we never created, ack and move on
					outcome = OutcomeIgnored
					return nil
				case pkgerrors.CodeStateConflict:
					// lifecycle moved first (cancel-vs-reconcile); the event
					// still counts as handled
					outcome = OutcomeConflict
					return nil
				}
			}
			return applyErr
		}
		return nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncWebhook(event.Type, "error")
		}
		return outcome, err
	}

	if s.metrics != nil {
		s.metrics.IncWebhook(event.Type, string(outcome))
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id": eventID,
		"outcome":  string(outcome),
	})
	if outcome == OutcomeConflict {
		s.logg.Warn(logCtx, "webhook event conflicted with current order state")
	} else {
		s.logg.Info(logCtx, "webhook event reconciled")
	}
	return outcome, nil
}
