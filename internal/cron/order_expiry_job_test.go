package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brightcart/storefront-backend/pkg/db/models"
	"github.com/brightcart/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
)

type fakeExpiredReader struct {
	orders []models.Order
	cutoff time.Time
	limit  int
	err    error
}

func (f *fakeExpiredReader) ListExpiredPending(_ context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	f.cutoff = cutoff
	f.limit = limit
	return f.orders, f.err
}

type fakeExpirer struct {
	expired []uuid.UUID
	errFor  map[uuid.UUID]error
}

func (f *fakeExpirer) Expire(_ context.Context, orderID uuid.UUID) error {
	if err, ok := f.errFor[orderID]; ok {
		return err
	}
	f.expired = append(f.expired, orderID)
	return nil
}

func staleOrder() models.Order {
	expiry := time.Now().UTC().Add(-time.Hour)
	return models.Order{
		ID:                      uuid.New(),
		CustomerID:              uuid.New(),
		Status:                  enums.OrderStatusPending,
		PaymentStatus:           enums.PaymentStatusUnpaid,
		PaymentSessionExpiresAt: &expiry,
	}
}

func newExpiryJob(t *testing.T, reader *fakeExpiredReader, expirer *fakeExpirer) *orderExpiryJob {
	t.Helper()
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger:        cronTestLogger(),
		PendingReader: reader,
		Expirer:       expirer,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	return job.(*orderExpiryJob)
}

func TestOrderExpiryJobExpiresStaleOrders(t *testing.T) {
	first := staleOrder()
	second := staleOrder()
	reader := &fakeExpiredReader{orders: []models.Order{first, second}}
	expirer := &fakeExpirer{}
	job := newExpiryJob(t, reader, expirer)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(expirer.expired) != 2 {
		t.Fatalf("expected 2 expirations, got %d", len(expirer.expired))
	}
	if !reader.cutoff.Equal(now) {
		t.Fatalf("cutoff must be the sweep time, got %s", reader.cutoff)
	}
	if reader.limit != expiryBatchSize {
		t.Fatalf("unexpected batch limit %d", reader.limit)
	}
}

func TestOrderExpiryJobSkipsOrdersThatMovedFirst(t *testing.T) {
	paid := staleOrder()
	stale := staleOrder()
	reader := &fakeExpiredReader{orders: []models.Order{paid, stale}}
	expirer := &fakeExpirer{
		errFor: map[uuid.UUID]error{
			paid.ID: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from processing to expired"),
		},
	}
	job := newExpiryJob(t, reader, expirer)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("a lost race must not fail the sweep: %v", err)
	}
	if len(expirer.expired) != 1 || expirer.expired[0] != stale.ID {
		t.Fatalf("only the still-pending order should expire, got %v", expirer.expired)
	}
}

func TestOrderExpiryJobCollectsHardFailures(t *testing.T) {
	broken := staleOrder()
	healthy := staleOrder()
	reader := &fakeExpiredReader{orders: []models.Order{broken, healthy}}
	expirer := &fakeExpirer{
		errFor: map[uuid.UUID]error{
			broken.ID: errors.New("connection reset"),
		},
	}
	job := newExpiryJob(t, reader, expirer)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected the hard failure to surface")
	}
	if len(expirer.expired) != 1 || expirer.expired[0] != healthy.ID {
		t.Fatalf("remaining orders must still be swept, got %v", expirer.expired)
	}
}

func TestOrderExpiryJobReaderFailure(t *testing.T) {
	reader := &fakeExpiredReader{err: errors.New("timeout")}
	job := newExpiryJob(t, reader, &fakeExpirer{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected reader failure to surface")
	}
}
