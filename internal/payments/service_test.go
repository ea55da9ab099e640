package payments

import (
	"context"
	"fmt"
	"io"
	"testing"
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

type fakeGateway struct {
	lastKey      string
	lastDeadline bool
	deleted      []string
	failCreate   error
}

func (f *fakeGateway) CreatePaymentLink(ctx context.Context, params square.PaymentLinkCreateParams) (*sq.PaymentLink, error) {
	f.lastKey = params.IdempotencyKey
	_, f.lastDeadline = ctx.Deadline()
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	id := "plink_" + uuid.NewString()
	url := "https://square.link/u/" + uuid.NewString()
	return &sq.PaymentLink{ID: &id, URL: &url}, nil
}

func (f *fakeGateway) DeletePaymentLink(_ context.Context, linkID string) error {
	f.deleted = append(f.deleted, linkID)
	return nil
}

func (f *fakeGateway) NewIdempotencyKey(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

type fakeOrderStore struct {
	orders map[uuid.UUID]*models.Order

	savedSessionID string
	savedRedirect  string
	savedExpiry    time.Time
}

func (f *fakeOrderStore) FindForCustomer(_ context.Context, customerID, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok || order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (f *fakeOrderStore) SetPaymentSessionTx(_ *gorm.DB, _ uuid.UUID, sessionID, redirectURL string, expiresAt time.Time) error {
	f.savedSessionID = sessionID
	f.savedRedirect = redirectURL
	f.savedExpiry = expiresAt
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func newPaymentsService(t *testing.T, gateway *fakeGateway, store *fakeOrderStore) Service {
	t.Helper()
	cfg := config.CheckoutConfig{
		SessionTTL:     24 * time.Hour,
		GatewayTimeout: 10 * time.Second,
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(gateway, store, passthroughTx{}, cfg, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateSessionDerivesKeyFromOrderID(t *testing.T) {
	gateway := &fakeGateway{}
	svc := newPaymentsService(t, gateway, &fakeOrderStore{})
	order := &models.Order{ID: uuid.New(), OrderNumber: 1001, TotalCents: 4200}

	session, err := svc.CreateSessionForOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	wantKey := fmt.Sprintf("order-%s", order.ID)
	if gateway.lastKey != wantKey {
		t.Fatalf("expected idempotency key %q, got %q", wantKey, gateway.lastKey)
	}
	if !gateway.lastDeadline {
		t.Fatal("gateway call must carry a deadline")
	}
	if session.SessionID == "" || session.RedirectURL == "" {
		t.Fatalf("incomplete session: %+v", session)
	}
	if time.Until(session.ExpiresAt) < 23*time.Hour {
		t.Fatalf("expiry should be about one session TTL out, got %s", session.ExpiresAt)
	}
}

func TestCreateSessionPropagatesGatewayFailure(t *testing.T) {
	gateway := &fakeGateway{
		failCreate: pkgerrors.New(pkgerrors.CodeGateway, "square create payment link failed"),
	}
	svc := newPaymentsService(t, gateway, &fakeOrderStore{})

	_, err := svc.CreateSessionForOrder(context.Background(), &models.Order{ID: uuid.New(), OrderNumber: 1001})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeGateway {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestRefreshSessionOnlyForPendingOrders(t *testing.T) {
	customerID := uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    customerID,
		OrderNumber:   1001,
		Status:        enums.OrderStatusProcessing,
		PaymentStatus: enums.PaymentStatusPaid,
	}
	store := &fakeOrderStore{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	svc := newPaymentsService(t, &fakeGateway{}, store)

	_, err := svc.RefreshSession(context.Background(), customerID, order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRefreshSessionReplacesStaleLink(t *testing.T) {
	customerID := uuid.New()
	stale := "plink_stale"
	order := &models.Order{
		ID:               uuid.New(),
		CustomerID:       customerID,
		OrderNumber:      1001,
		Status:           enums.OrderStatusPending,
		PaymentStatus:    enums.PaymentStatusFailed,
		PaymentSessionID: &stale,
	}
	store := &fakeOrderStore{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	gateway := &fakeGateway{}
	svc := newPaymentsService(t, gateway, store)

	session, err := svc.RefreshSession(context.Background(), customerID, order.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if len(gateway.deleted) != 1 || gateway.deleted[0] != stale {
		t.Fatalf("stale link should be deleted, got %v", gateway.deleted)
	}
	if store.savedSessionID != session.SessionID || store.savedRedirect != session.RedirectURL {
		t.Fatalf("refreshed session not persisted: %+v", store)
	}
}
