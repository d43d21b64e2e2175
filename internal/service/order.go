package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/thokbazaar/server/internal/domain"
	"github.com/thokbazaar/server/internal/events"
	"github.com/thokbazaar/server/internal/store"
)

// errNoChange signals from a mutation closure that the order is already in
// the requested state. The write is skipped and the caller sees success.
var errNoChange = errors.New("service: order already in requested state")

// minDiscountReasonLen is the audit floor for admin discount justifications.
const minDiscountReasonLen = 10

// OrderService provides business logic for order lifecycle operations. All
// transitions run inside a single-document atomic mutation, so concurrent
// admin edits, payment callbacks, and the expiry sweep serialize per order.
type OrderService interface {
	// Create persists a new order record.
	Create(ctx context.Context, order domain.Order) error

	// Get retrieves a single order by ID.
	Get(ctx context.Context, orderID string) (*domain.Order, error)

	// ListByUser returns a user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)

	// UpdateStatus moves the fulfillment axis to the target status. Moving to
	// the current status is a no-op; an illegal transition is a conflict.
	UpdateStatus(ctx context.Context, orderID string, to domain.OrderStatus, notes string) (*domain.Order, error)

	// MarkPaid flips the payment axis pending→paid and records the gateway
	// ids. Replaying the same payment id returns the order unchanged.
	MarkPaid(ctx context.Context, orderID, gatewayPaymentID, signature string) (*domain.Order, error)

	// MarkPaymentFailed flips pending→failed. Already-failed is a no-op;
	// a paid order can never be failed.
	MarkPaymentFailed(ctx context.Context, orderID, reason string) (*domain.Order, error)

	// ApplyAdminDiscount sets the order's total admin discount to amount.
	// The amount is absolute, not additive, so a retried request lands on
	// the same total.
	ApplyAdminDiscount(ctx context.Context, orderID string, amount int64, reason string) (*domain.Order, error)
}

type orderService struct {
	orders store.Docs[domain.Order]
	events events.Publisher
	now    func() time.Time
}

// NewOrderService creates a new OrderService instance. The publisher may be
// nil; fulfillment transitions then go unannounced.
func NewOrderService(orders store.Docs[domain.Order], publisher events.Publisher) OrderService {
	return &orderService{
		orders: orders,
		events: publisher,
		now:    time.Now,
	}
}

func (s *orderService) Create(ctx context.Context, order domain.Order) error {
	const op = "order.create"

	if err := s.orders.Create(ctx, order.ID, order); err != nil {
		if errors.Is(err, store.ErrExists) {
			return domain.Conflict(op, "Order already exists")
		}
		return domain.Internal(err, op, "Failed to create order")
	}
	return nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *orderService) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	all, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0)
	for _, o := range all {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID string, to domain.OrderStatus, notes string) (*domain.Order, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	var changed bool
	order, err := s.mutate(ctx, orderID, func(o *domain.Order) error {
		changed = false
		if o.OrderStatus == to {
			return errNoChange
		}
		if !o.OrderStatus.CanTransitionTo(to) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.OrderStatus, to)
		}
		o.OrderStatus = to
		o.AppendHistory(s.now(), notes)
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, events.SubjectOrderStatus, events.OrderEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			OrderStatus:   string(order.OrderStatus),
			PaymentStatus: string(order.PaymentStatus),
			Total:         order.Total,
		})
	}
	return order, nil
}

func (s *orderService) MarkPaid(ctx context.Context, orderID, gatewayPaymentID, signature string) (*domain.Order, error) {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		if o.PaymentStatus == domain.PaymentPaid && o.GatewayPaymentID == gatewayPaymentID {
			return errNoChange
		}
		if !o.PaymentStatus.CanTransitionTo(domain.PaymentPaid) {
			return ErrPaymentFinal
		}
		o.PaymentStatus = domain.PaymentPaid
		o.OrderStatus = domain.OrderProcessing
		o.GatewayPaymentID = gatewayPaymentID
		o.GatewaySignature = signature
		o.AppendHistory(s.now(), "payment verified")
		return nil
	})
}

func (s *orderService) MarkPaymentFailed(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		if o.PaymentStatus == domain.PaymentFailed {
			return errNoChange
		}
		if !o.PaymentStatus.CanTransitionTo(domain.PaymentFailed) {
			return ErrPaymentFinal
		}
		o.PaymentStatus = domain.PaymentFailed
		o.OrderStatus = domain.OrderCancelled
		o.AppendHistory(s.now(), reason)
		return nil
	})
}

func (s *orderService) ApplyAdminDiscount(ctx context.Context, orderID string, amount int64, reason string) (*domain.Order, error) {
	if amount < 0 {
		return nil, ErrNegativeDiscount
	}
	if len(reason) < minDiscountReasonLen {
		return nil, ErrDiscountReasonTooShort
	}

	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		if o.OrderStatus != domain.OrderPlaced && o.OrderStatus != domain.OrderProcessing {
			return ErrOrderNotDiscountable
		}
		if amount > o.DiscountableAmount() {
			return ErrDiscountExceedsOrder
		}
		if o.AdminDiscount == amount && o.DiscountReason == reason {
			return errNoChange
		}
		o.AdminDiscount = amount
		o.DiscountReason = reason
		o.RecomputeTotal()
		o.AppendHistory(s.now(), fmt.Sprintf("admin discount set to %d: %s", amount, reason))
		return nil
	})
}

// mutate runs fn inside an atomic order mutation and returns the resulting
// order. errNoChange from fn aborts the write but still reports success with
// the unchanged order.
func (s *orderService) mutate(ctx context.Context, orderID string, fn func(*domain.Order) error) (*domain.Order, error) {
	var out domain.Order
	err := s.orders.Mutate(ctx, orderID, func(o *domain.Order) error {
		if err := fn(o); err != nil {
			if errors.Is(err, errNoChange) {
				out = *o
			}
			return err
		}
		out = *o
		return nil
	})
	if errors.Is(err, errNoChange) {
		return &out, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// publish is best effort; a broker failure never fails the transition.
func (s *orderService) publish(ctx context.Context, subject string, event events.OrderEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now()
	if err := s.events.Publish(ctx, subject, event); err != nil {
		slog.Default().Warn("failed to publish order event", "subject", subject, "error", err)
	}
}
