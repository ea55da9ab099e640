package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brightcart/storefront-backend/pkg/db/models"
	"github.com/brightcart/storefront-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ordersDDL := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  payment_method TEXT NOT NULL,
  shipping_address TEXT,
  notes TEXT,
  subtotal_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  payment_session_id TEXT,
  payment_redirect_url TEXT,
  payment_session_expires_at DATETIME,
  tracking_reference TEXT,
  version INTEGER NOT NULL DEFAULT 0,
  paid_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  canceled_at DATETIME,
  expired_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	lineItemsDDL := `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  unit_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	historyDDL := `
CREATE TABLE IF NOT EXISTS order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  note TEXT,
  actor TEXT NOT NULL,
  created_at DATETIME
);`
	for _, ddl := range []string{ordersDDL, lineItemsDDL, historyDDL} {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	return conn
}

func seedOrder(t *testing.T, conn *gorm.DB, order *models.Order) *models.Order {
	t.Helper()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CustomerID == uuid.Nil {
		order.CustomerID = uuid.New()
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = enums.PaymentStatusUnpaid
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = enums.PaymentMethodCard
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func TestNextOrderNumber(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	err := conn.Transaction(func(tx *gorm.DB) error {
		next, err := repo.NextOrderNumberTx(tx)
		if err != nil {
			return err
		}
		if next != 1001 {
			t.Fatalf("expected first order number 1001, got %d", next)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	seedOrder(t, conn, &models.Order{OrderNumber: 1500})

	err = conn.Transaction(func(tx *gorm.DB) error {
		next, err := repo.NextOrderNumberTx(tx)
		if err != nil {
			return err
		}
		if next != 1501 {
			t.Fatalf("expected 1501 after a 1500 order, got %d", next)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestUpdateGuardedRejectsStaleVersion(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	order := seedOrder(t, conn, &models.Order{OrderNumber: 1001, Version: 3})

	err := conn.Transaction(func(tx *gorm.DB) error {
		ok, err := repo.UpdateGuardedTx(tx, order.ID, 2, map[string]any{
			"status": enums.OrderStatusProcessing,
		})
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("stale version must not win the write")
		}

		ok, err = repo.UpdateGuardedTx(tx, order.ID, 3, map[string]any{
			"status": enums.OrderStatusProcessing,
		})
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("current version write should apply")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	var reloaded models.Order
	if err := conn.Where("id = ?", order.ID).First(&reloaded).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != enums.OrderStatusProcessing || reloaded.Version != 4 {
		t.Fatalf("expected processing at version 4, got %s v%d", reloaded.Status, reloaded.Version)
	}
}

func TestListExpiredPending(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	lapsed := seedOrder(t, conn, &models.Order{OrderNumber: 1001, PaymentSessionExpiresAt: &past})
	seedOrder(t, conn, &models.Order{OrderNumber: 1002, PaymentSessionExpiresAt: &future})
	seedOrder(t, conn, &models.Order{OrderNumber: 1003}) // never issued a session
	seedOrder(t, conn, &models.Order{
		OrderNumber:             1004,
		Status:                  enums.OrderStatusProcessing,
		PaymentSessionExpiresAt: &past,
	})

	rows, err := repo.ListExpiredPending(context.Background(), now, 10)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != lapsed.ID {
		t.Fatalf("expected only the lapsed pending order, got %d rows", len(rows))
	}
}

func TestFindForCustomerHidesForeignOrders(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	order := seedOrder(t, conn, &models.Order{OrderNumber: 1001})

	if _, err := repo.FindForCustomer(context.Background(), order.CustomerID, order.ID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := repo.FindForCustomer(context.Background(), uuid.New(), order.ID); err == nil {
		t.Fatal("foreign customer must not see the order")
	}
}
