package square

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
	"github.com/brightcart/storefront-backend/pkg/logger"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type fakeReconciler struct {
	paid     int
	failed   int
	refunded int
	err      error
}

func (f *fakeReconciler) MarkPaidTx(_ context.Context, _ *gorm.DB, _ uuid.UUID) error {
	f.paid++
	return f.err
}

func (f *fakeReconciler) MarkPaymentFailedTx(_ context.Context, _ *gorm.DB, _ uuid.UUID) error {
	f.failed++
	return f.err
}

func (f *fakeReconciler) RefundTx(_ context.Context, _ *gorm.DB, _ uuid.UUID) error {
	f.refunded++
	return f.err
}

func setupWebhookDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:webhooks_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ddl := `
CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  provider_event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  order_id TEXT,
  received_at DATETIME
);`
	if err := conn.Exec(ddl).Error; err != nil {
		t.Fatalf("create webhook_events: %v", err)
	}
	return conn
}

func newWebhookService(t *testing.T, conn *gorm.DB, rec *fakeReconciler) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(rec, &gormTxRunner{db: conn}, nil, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func paymentEvent(eventType string, orderID uuid.UUID) Event {
	return Event{
		EventID: "evt_" + uuid.NewString(),
		Type:    eventType,
		Data: EventData{
			OrderID:   orderID.String(),
			PaymentID: "pay_" + uuid.NewString(),
		},
	}
}

func TestProcessAppliesPaymentSucceeded(t *testing.T) {
	conn := setupWebhookDB(t)
	rec := &fakeReconciler{}
	svc := newWebhookService(t, conn, rec)

	outcome, err := svc.Process(context.Background(), paymentEvent(EventPaymentSucceeded, uuid.New()))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome != OutcomeProcessed || rec.paid != 1 {
		t.Fatalf("expected processed with one mark-paid, got %s / %d", outcome, rec.paid)
	}

	var count int64
	if err := conn.Model(&models.WebhookEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("processed event must be recorded, got %d rows", count)
	}
}

func TestProcessDuplicateEventIsNoOp(t *testing.T) {
	conn := setupWebhookDB(t)
	rec := &fakeReconciler{}
	svc := newWebhookService(t, conn, rec)
	event := paymentEvent(EventPaymentSucceeded, uuid.New())

	if _, err := svc.Process(context.Background(), event); err != nil {
		t.Fatalf("first process: %v", err)
	}
	outcome, err := svc.Process(context.Background(), event)
	if err != nil {
		t.Fatalf("second process: %v", err)
	}
	if outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate outcome, got %s", outcome)
	}
	if rec.paid != 1 {
		t.Fatalf("redelivery must not re-apply effects, got %d", rec.paid)
	}
}

func TestProcessUnknownOrderIsAcknowledged(t *testing.T) {
	conn := setupWebhookDB(t)
	rec := &fakeReconciler{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc := newWebhookService(t, conn, rec)

	outcome, err := svc.Process(context.Background(), paymentEvent(EventPaymentSucceeded, uuid.New()))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("expected ignored outcome, got %s", outcome)
	}
}

func TestProcessStateConflictStillAcks(t *testing.T) {
	conn := setupWebhookDB(t)
	rec := &fakeReconciler{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from cancelled to processing")}
	svc := newWebhookService(t, conn, rec)

	outcome, err := svc.Process(context.Background(), paymentEvent(EventPaymentSucceeded, uuid.New()))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome != OutcomeConflict {
		t.Fatalf("expected conflict outcome, got %s", outcome)
	}
}

func TestProcessRoutesByEventType(t *testing.T) {
	conn := setupWebhookDB(t)
	rec := &fakeReconciler{}
	svc := newWebhookService(t, conn, rec)
	ctx := context.Background()

	if _, err := svc.Process(ctx, paymentEvent(EventPaymentFailed, uuid.New())); err != nil {
		t.Fatalf("failed event: %v", err)
	}
	if _, err := svc.Process(ctx, paymentEvent(EventRefunded, uuid.New())); err != nil {
		t.Fatalf("refund event: %v", err)
	}
	outcome, err := svc.Process(ctx, paymentEvent("subscription_renewed", uuid.New()))
	if err != nil {
		t.Fatalf("unknown event: %v", err)
	}

	if rec.failed != 1 || rec.refunded != 1 {
		t.Fatalf("routing wrong: failed=%d refunded=%d", rec.failed, rec.refunded)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("unknown types must be ignored, got %s", outcome)
	}
}

func TestProcessRejectsMalformedEvent(t *testing.T) {
	conn := setupWebhookDB(t)
	svc := newWebhookService(t, conn, &fakeReconciler{})

	_, err := svc.Process(context.Background(), Event{Type: EventPaymentSucceeded})
	if pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func signatureFor(secret, url string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(url))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	url := "https://shop.example.com/api/v1/webhooks/square"
	body := []byte(`{"event_id":"evt_1","type":"payment_succeeded"}`)

	valid := signatureFor(secret, url, body)
	if !VerifySignature(secret, url, body, valid) {
		t.Fatal("valid signature rejected")
	}
	if VerifySignature(secret, url, body, "tampered") {
		t.Fatal("invalid signature accepted")
	}
	if VerifySignature(secret, url, append(body, ' '), valid) {
		t.Fatal("modified body must fail verification")
	}
	if VerifySignature("", url, body, valid) {
		t.Fatal("empty secret must fail verification")
	}
}
