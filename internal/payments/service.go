package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/pkg/config"
	"github.com/brightcart/storefront-backend/pkg/db/models"
	"github.com/brightcart/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
	"github.com/brightcart/storefront-backend/pkg/logger"
	"github.com/brightcart/storefront-backend/pkg/square"
)

// Session is an issued hosted-payment session.
type Session struct {
	SessionID   string    `json:"session_id"`
	RedirectURL string    `json:"redirect_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Gateway is the slice of the Square wrapper the session service uses.
type Gateway interface {
	CreatePaymentLink(ctx context.Context, params square.PaymentLinkCreateParams) (*sq.PaymentLink, error)
	DeletePaymentLink(ctx context.Context, linkID string) error
	NewIdempotencyKey(prefix string) string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderSessionStore loads orders and persists issued sessions.
type OrderSessionStore interface {
	FindForCustomer(ctx context.Context, customerID, id uuid.UUID) (*models.Order, error)
	SetPaymentSessionTx(tx *gorm.DB, orderID uuid.UUID, sessionID, redirectURL string, expiresAt time.Time) error
}

// Service issues hosted payment sessions for orders.
type Service interface {
	// CreateSessionForOrder calls the gateway once with a bounded timeout.
	// The idempotency key is derived from the order id so a crashed checkout
	// retried by the client cannot mint two live links.
	CreateSessionForOrder(ctx context.Context, order *models.Order) (*Session, error)

	// RefreshSession re-issues a session for a pending order whose link
	// lapsed or whose payment attempt failed.
	RefreshSession(ctx context.Context, customerID, orderID uuid.UUID) (*Session, error)
}

type service struct {
	gateway Gateway
	orders  OrderSessionStore
	tx      txRunner
	cfg     config.CheckoutConfig
	logg    *logger.Logger
}

// NewService wires the payment session service and validates its dependencies.
func NewService(gateway Gateway, orders OrderSessionStore, tx txRunner, cfg config.CheckoutConfig, logg *logger.Logger) (Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order session store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{gateway: gateway, orders: orders, tx: tx, cfg: cfg, logg: logg}, nil
}

func (s *service) CreateSessionForOrder(ctx context.Context, order *models.Order) (*Session, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	key := fmt.Sprintf("order-%s", order.ID)
	return s.createSession(ctx, order, key)
}

func (s *service) RefreshSession(ctx context.Context, customerID, orderID uuid.UUID) (*Session, error) {
	order, err := s.orders.FindForCustomer(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment link can only be refreshed while the order is pending")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}

	// best effort: a dangling provider link is harmless once replaced
	if order.PaymentSessionID != nil {
		if err := s.gateway.DeletePaymentLink(ctx, *order.PaymentSessionID); err != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "stale payment link delete failed")
		}
	}

	session, err := s.createSession(ctx, order, s.gateway.NewIdempotencyKey("order-refresh"))
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.orders.SetPaymentSessionTx(tx, order.ID, session.SessionID, session.RedirectURL, session.ExpiresAt)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// createSession performs the single bounded gateway call. No internal retry:
// a timeout or 5xx surfaces as a gateway error and the caller decides.
func (s *service) createSession(ctx context.Context, order *models.Order, idempotencyKey string) (*Session, error) {
	timeout := s.cfg.GatewayTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	link, err := s.gateway.CreatePaymentLink(callCtx, square.PaymentLinkCreateParams{
		Name:           fmt.Sprintf("Order #%d", order.OrderNumber),
		AmountCents:    int64(order.TotalCents),
		ReferenceID:    order.ID.String(),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	sessionID := derefString(link.GetID())
	redirectURL := derefString(link.GetURL())
	if sessionID == "" || redirectURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "payment provider returned an incomplete link")
	}

	ttl := s.cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	session := &Session{
		SessionID:   sessionID,
		RedirectURL: redirectURL,
		ExpiresAt:   time.Now().UTC().Add(ttl),
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "session_id", sessionID), "payment session issued")
	return session, nil
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
