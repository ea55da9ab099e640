package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/brightcart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightcart/storefront-backend/pkg/errors"
	"github.com/brightcart/storefront-backend/pkg/logger"
)

const expiryBatchSize = 200

// OrderExpiryJobParams configure the pending order sweeper.
type OrderExpiryJobParams struct {
	Logger        *logger.Logger
	PendingReader expiredPendingReader
	Expirer       orderExpirer
}

type expiredPendingReader interface {
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderExpirer interface {
	Expire(ctx context.Context, orderID uuid.UUID) error
}

// NewOrderExpiryJob builds the cron job that expires pending orders whose
// payment session lapsed without a terminal payment event.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.PendingReader == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	return &orderExpiryJob{
		logg:          params.Logger,
		pendingReader: params.PendingReader,
		expirer:       params.Expirer,
		now:           time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg          *logger.Logger
	pendingReader expiredPendingReader
	expirer       orderExpirer
	now           func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	stale, err := j.pendingReader.ListExpiredPending(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return fmt.Errorf("query expired pending orders: %w", err)
	}

	var errs []error
	expired := 0
	skipped := 0
	for _, order := range stale {
		if err := j.expireOrder(ctx, order); err != nil {
			if isExpirySkip(err) {
				// a webhook or the customer moved the order first; the
				// sweeper yields
				skipped++
				continue
			}
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(stale),
		"expired":    expired,
		"skipped":    skipped,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return multierr.Combine(errs...)
}

func (j *orderExpiryJob) expireOrder(ctx context.Context, order models.Order) error {
	orderCtx := j.logg.WithOrderID(ctx, order.ID.String())
	if err := j.expirer.Expire(orderCtx, order.ID); err != nil {
		return err
	}
	j.logg.Info(orderCtx, "pending order expired")
	return nil
}

func isExpirySkip(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return false
	}
	switch typed.Code() {
	case pkgerrors.CodeNotFound, pkgerrors.CodeStateConflict, pkgerrors.CodeConflict:
		return true
	}
	return false
}
