// Package jobs runs the background maintenance loops. The only one today is
// the reservation sweep, which reclaims stock from checkouts that never
// finished paying.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thokbazaar/server/internal/events"
	"github.com/thokbazaar/server/internal/inventory"
	"github.com/thokbazaar/server/internal/service"
	"github.com/thokbazaar/server/internal/telemetry"
)

// Sweeper periodically releases expired stock holds and fails the matching
// unpaid orders. Single writer: one Sweeper per deployment.
type Sweeper struct {
	ledger   *inventory.Ledger
	orders   service.OrderService
	events   events.Publisher
	metrics  *telemetry.CheckoutMetrics
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper running every interval.
func NewSweeper(
	ledger *inventory.Ledger,
	orders service.OrderService,
	publisher events.Publisher,
	metrics *telemetry.CheckoutMetrics,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		ledger:   ledger,
		orders:   orders,
		events:   publisher,
		metrics:  metrics,
		interval: interval,
		logger:   logger,
	}
}

// Run loops until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("reservation sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reservation sweeper stopped")
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("reservation sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce releases every expired hold and fails its order. A hold whose
// payment lands between expiry and this pass loses the race inside the
// ledger's atomic transition, so nothing paid is ever clawed back.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	start := time.Now()

	released, err := s.ledger.SweepExpired(ctx)
	if err != nil {
		return err
	}
	s.metrics.ObserveSweep(time.Since(start).Seconds())
	if len(released) == 0 {
		return nil
	}

	s.metrics.RecordReservationsExpired(len(released))
	for _, r := range released {
		order, err := s.orders.MarkPaymentFailed(ctx, r.OrderID, "reservation expired")
		if err != nil {
			// The order may have been cancelled or was never created; the
			// stock is back either way.
			s.logger.Warn("could not fail order for expired reservation",
				"order_id", r.OrderID,
				"reservation_id", r.ID,
				"error", err)
			continue
		}

		s.metrics.RecordPaymentFailure("expired")
		s.logger.Info("expired reservation released",
			"order_id", order.ID,
			"reservation_id", r.ID)

		if s.events != nil {
			event := events.OrderEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				OrderStatus:   string(order.OrderStatus),
				PaymentStatus: string(order.PaymentStatus),
				Reason:        "reservation_expired",
				OccurredAt:    time.Now(),
			}
			if err := s.events.Publish(ctx, events.SubjectStockExpired, event); err != nil {
				s.logger.Warn("failed to publish expiry event", "order_id", order.ID, "error", err)
			}
		}
	}
	return nil
}
