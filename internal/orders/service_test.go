package orders

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/pkg/db/models"
	"github.com/brightcart/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
	"github.com/brightcart/storefront-backend/pkg/logger"
	"github.com/brightcart/storefront-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (o *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	o.events = append(o.events, event)
	return nil
}

type recordingStock struct {
	released int
	commits  int
}

func (s *recordingStock) ReleaseAllForOrderTx(_ *gorm.DB, _ uuid.UUID) (int, error) {
	s.released++
	return 1, nil
}

func (s *recordingStock) CommitAllForOrderTx(_ *gorm.DB, _ uuid.UUID) (int, error) {
	s.commits++
	return 1, nil
}

func newOrderService(t *testing.T, conn *gorm.DB) (Service, *recordingOutbox, *recordingStock) {
	t.Helper()
	ob := &recordingOutbox{}
	stock := &recordingStock{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(conn), &gormTxRunner{db: conn}, ob, stock, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, ob, stock
}

func historyCount(t *testing.T, conn *gorm.DB, orderID uuid.UUID) int64 {
	t.Helper()
	var count int64
	if err := conn.Model(&models.OrderStatusHistory{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		t.Fatalf("count history: %v", err)
	}
	return count
}

func reloadOrder(t *testing.T, conn *gorm.DB, orderID uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	if err := conn.Where("id = ?", orderID).First(&order).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return order
}

func TestShipRequiresTrackingReference(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc, _, _ := newOrderService(t, conn)

	err := svc.Ship(context.Background(), ShipInput{OrderID: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestShipCommitsStockAndRecordsTracking(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc, ob, stock := newOrderService(t, conn)
	order := seedOrder(t, conn, &models.Order{
		OrderNumber:   1001,
		Status:        enums.OrderStatusProcessing,
		PaymentStatus: enums.PaymentStatusPaid,
	})

	err := svc.Ship(context.Background(), ShipInput{
		OrderID:           order.ID,
		TrackingReference: "TRACK-123",
	})
	if err != nil {
		t.Fatalf("ship: %v", err)
	}

	reloaded := reloadOrder(t, conn, order.ID)
	if reloaded.Status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", reloaded.Status)
	}
	if reloaded.TrackingReference == nil || *reloaded.TrackingReference != "TRACK-123" {
		t.Fatalf("tracking reference not stored: %+v", reloaded.TrackingReference)
	}
	if reloaded.ShippedAt == nil {
		t.Fatal("shipped_at not stamped")
	}
	if stock.commits != 1 {
		t.Fatalf("expected one stock commit, got %d", stock.commits)
	}
	if historyCount(t, conn, order.ID) != 1 {
		t.Fatal("transition must append a history row")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderShipped {
		t.Fatalf("expected a shipped event, got %+v", ob.events)
	}
}

func TestIllegalTransitionChangesNothing(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc, ob, _ := newOrderService(t, conn)
	order := seedOrder(t, conn, &models.Order{OrderNumber: 1001}) // pending

	err := svc.Deliver(context.Background(), order.ID, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	reloaded := reloadOrder(t, conn, order.ID)
	if reloaded.Status != enums.OrderStatusPending || reloaded.Version != 0 {
		t.Fatalf("failed transition must change nothing: %s v%d", reloaded.Status, reloaded.Version)
	}
	if historyCount(t, conn, order.ID) != 0 {
		t.Fatal("no history row on failed transition")
	}
	if len(ob.events) != 0 {
		t.Fatal("no event on failed transition")
	}
}

func TestCustomerCannotCancelProcessingOrder(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc, _, stock := newOrderService(t, conn)
	order := seedOrder(t, conn, &models.Order{
		OrderNumber:   1001,
		Status:        enums.OrderStatusProcessing,
		PaymentStatus: enums.PaymentStatusPaid,
	})
	ctx := context.Background()

	err := svc.Cancel(ctx, CancelInput{OrderID: order.ID, Actor: ActorCustomer})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for customer cancel, got %v", err)
	}
	if stock.released != 0 {
		t.Fatal("failed cancel must not release stock")
	}

	err = svc.Cancel(ctx, CancelInput{OrderID: order.ID, Actor: ActorMerchant, IsMerchant: true})
	if err != nil {
		t.Fatalf("merchant cancel: %v", err)
	}
	reloaded := reloadOrder(t, conn, order.ID)
	if reloaded.Status != enums.OrderStatusCancelled || reloaded.CanceledAt == nil {
		t.Fatalf("expected cancelled order: %+v", reloaded.Status)
	}
	if stock.released != 1 {
		t.Fatalf("expected one stock release, got %d", stock.released)
	}
}

func TestMarkPaidMovesPendingToProcessing(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc, ob, _ := newOrderService(t, conn)
	order := seedOrder(t, conn, &models.Order{OrderNumber: 1001})
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.MarkPaidTx(ctx, tx, order.ID)
	})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	reloaded := reloadOrder(t, conn, order.ID)
	if reloaded.Status != enums.OrderStatusProcessing {
		t.Fatalf("expected processing, got %s", reloaded.Status)
	}
	if reloaded.PaymentStatus != enums.PaymentStatusPaid || reloaded.PaidAt == nil {
		t.Fatalf("payment not settled: %s", reloaded.PaymentStatus)
	}

	// redelivered webhook: silent no-op
	err = conn.Transaction(func(tx *gorm.DB) error {
		return svc.MarkPaidTx(ctx, tx, order.ID)
	})
	if err != nil {
		t.Fatalf("second mark paid: %v", err)
	}
	if historyCount(t, conn, order.ID) != 1 {
		t.Fatal("no-op replay must not append history")
	}
	if len(ob.events) != 1 {
		t.Fatalf("no-op replay must not emit, got %d events", len(ob.events))
	}
}

func TestPaymentFailureKeepsOrderPending(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc, _, _ := newOrderService(t, conn)
	order := seedOrder(t, conn, &models.Order{OrderNumber: 1001})
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.MarkPaymentFailedTx(ctx, tx, order.ID)
	})
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	reloaded := reloadOrder(t, conn, order.ID)
	if reloaded.Status != enums.OrderStatusPending {
		t.Fatalf("lifecycle must stay pending, got %s", reloaded.Status)
	}
	if reloaded.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("expected failed payment status, got %s", reloaded.PaymentStatus)
	}
}

func TestRefundReleasesStockOnce(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc, _, stock := newOrderService(t, conn)
	order := seedOrder(t, conn, &models.Order{
		OrderNumber:   1001,
		Status:        enums.OrderStatusProcessing,
		PaymentStatus: enums.PaymentStatusPaid,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := conn.Transaction(func(tx *gorm.DB) error {
			return svc.RefundTx(ctx, tx, order.ID)
		})
		if err != nil {
			t.Fatalf("refund round %d: %v", i, err)
		}
	}

	reloaded := reloadOrder(t, conn, order.ID)
	if reloaded.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded, got %s", reloaded.PaymentStatus)
	}
	if stock.released != 1 {
		t.Fatalf("replayed refund must not release twice, got %d", stock.released)
	}
}

func TestExpireReleasesReservations(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc, ob, stock := newOrderService(t, conn)
	order := seedOrder(t, conn, &models.Order{OrderNumber: 1001})

	if err := svc.Expire(context.Background(), order.ID); err != nil {
		t.Fatalf("expire: %v", err)
	}

	reloaded := reloadOrder(t, conn, order.ID)
	if reloaded.Status != enums.OrderStatusExpired || reloaded.ExpiredAt == nil {
		t.Fatalf("expected expired order, got %s", reloaded.Status)
	}
	if stock.released != 1 {
		t.Fatalf("expected one release, got %d", stock.released)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderExpired {
		t.Fatalf("expected expired event, got %+v", ob.events)
	}
}
