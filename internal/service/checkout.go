package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/thokbazaar/server/internal/billing"
	"github.com/thokbazaar/server/internal/domain"
	"github.com/thokbazaar/server/internal/events"
	"github.com/thokbazaar/server/internal/inventory"
	"github.com/thokbazaar/server/internal/pricing"
	"github.com/thokbazaar/server/internal/store"
	"github.com/thokbazaar/server/internal/telemetry"
)

// PlaceResult is what the client needs to complete payment against the
// hosted gateway checkout.
type PlaceResult struct {
	OrderID        string `json:"orderId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

// CheckoutService orchestrates the checkout pipeline: pricing, stock holds,
// order creation, gateway registration, and payment confirmation.
type CheckoutService interface {
	// Calculate prices a cart without reserving anything. Safe to call on
	// every cart edit; identical inputs yield identical breakdowns.
	Calculate(ctx context.Context, lines []domain.CartLine) (*pricing.Breakdown, error)

	// Place recalculates the cart server-side, holds stock all-or-nothing,
	// registers a gateway order, and persists the order with its frozen
	// breakdown. Any failure after the hold releases the hold before
	// returning.
	Place(ctx context.Context, userID string, lines []domain.CartLine, address domain.Address) (*PlaceResult, error)

	// ConfirmPayment verifies the gateway callback and settles the order:
	// signature valid means paid plus committed stock, invalid means failed
	// plus released stock. Replaying a callback for an already-paid order
	// returns success without touching stock again.
	ConfirmPayment(ctx context.Context, userID, orderID, gatewayOrderID, gatewayPaymentID, signature string) (*domain.Order, error)
}

type checkoutService struct {
	products store.Docs[domain.Product]
	combos   store.Docs[domain.Combo]
	orders   OrderService
	ledger   *inventory.Ledger
	gateway  billing.Provider
	events   events.Publisher
	metrics  *telemetry.CheckoutMetrics
	cfg      CheckoutConfig
	logger   *slog.Logger
	now      func() time.Time
}

// CheckoutConfig carries the pricing and gateway knobs the orchestrator
// needs.
type CheckoutConfig struct {
	TaxRate        float64
	ShippingBuffer int64
	Currency       string

	// GatewayRetryMax bounds retries of transient gateway failures while the
	// stock hold ticks toward expiry.
	GatewayRetryMax uint64

	// GatewayRetryInterval is the initial backoff interval.
	GatewayRetryInterval time.Duration
}

// NewCheckoutService creates a new CheckoutService instance.
func NewCheckoutService(
	products store.Docs[domain.Product],
	combos store.Docs[domain.Combo],
	orders OrderService,
	ledger *inventory.Ledger,
	gateway billing.Provider,
	publisher events.Publisher,
	metrics *telemetry.CheckoutMetrics,
	cfg CheckoutConfig,
	logger *slog.Logger,
) CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.GatewayRetryMax == 0 {
		cfg.GatewayRetryMax = 3
	}
	if cfg.GatewayRetryInterval == 0 {
		cfg.GatewayRetryInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &checkoutService{
		products: products,
		combos:   combos,
		orders:   orders,
		ledger:   ledger,
		gateway:  gateway,
		events:   publisher,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *checkoutService) Calculate(ctx context.Context, lines []domain.CartLine) (*pricing.Breakdown, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	products, err := s.loadProducts(ctx, lines)
	if err != nil {
		return nil, err
	}
	combos, err := s.combos.List(ctx)
	if err != nil {
		return nil, err
	}

	breakdown, err := pricing.Calculate(lines, products, combos, pricing.Config{
		TaxRate:        s.cfg.TaxRate,
		ShippingBuffer: s.cfg.ShippingBuffer,
	}, s.now())
	if err != nil {
		if domain.IsCode(err, domain.ECONFLICT) {
			s.metrics.RecordStockConflict()
			return nil, fmt.Errorf("%w: %v", ErrInsufficientStock, err)
		}
		return nil, err
	}
	return breakdown, nil
}

func (s *checkoutService) Place(ctx context.Context, userID string, lines []domain.CartLine, address domain.Address) (*PlaceResult, error) {
	// Never trust a client-held breakdown; reprice against live snapshots.
	breakdown, err := s.Calculate(ctx, lines)
	if err != nil {
		return nil, err
	}

	orderID := uuid.New().String()
	holdID := uuid.New().String()

	held := make([]domain.ReservedLine, 0, len(breakdown.Lines))
	for _, line := range breakdown.Lines {
		held = append(held, domain.ReservedLine{
			ProductID: line.ProductID,
			Size:      line.Size,
			Quantity:  line.Quantity,
		})
	}

	if _, err := s.ledger.Hold(ctx, holdID, orderID, held); err != nil {
		if domain.IsCode(err, domain.ECONFLICT) {
			s.metrics.RecordStockConflict()
			// A concurrent checkout won the race between Calculate and Hold.
			return nil, fmt.Errorf("%w: %v", ErrInsufficientStock, err)
		}
		return nil, err
	}

	gatewayOrder, err := s.createGatewayOrder(ctx, orderID, breakdown.Total)
	if err != nil {
		s.releaseHold(ctx, holdID, orderID, "gateway order creation failed")
		return nil, err
	}

	now := s.now()
	order := domain.Order{
		ID:     orderID,
		UserID: userID,
		Items:  orderItems(breakdown.Lines),

		Subtotal:      breakdown.Subtotal,
		TaxRate:       breakdown.TaxRate,
		Tax:           breakdown.Tax,
		PromoCode:     breakdown.PromoCode,
		PromoDiscount: breakdown.PromoDiscount,
		Total:         breakdown.Total,

		Address:       address,
		OrderStatus:   domain.OrderPlaced,
		PaymentStatus: domain.PaymentPending,

		ReservationID:  holdID,
		GatewayOrderID: gatewayOrder.ID,

		CreatedAt: now,
	}
	order.AppendHistory(now, "order placed")

	if err := s.orders.Create(ctx, order); err != nil {
		s.releaseHold(ctx, holdID, orderID, "order persistence failed")
		return nil, err
	}

	s.metrics.RecordOrderPlaced(order.Total)
	s.publish(ctx, events.SubjectOrderPlaced, events.OrderEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		OrderStatus:   string(order.OrderStatus),
		PaymentStatus: string(order.PaymentStatus),
		Total:         order.Total,
	})

	return &PlaceResult{
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrder.ID,
		Amount:         order.Total,
		Currency:       s.cfg.Currency,
	}, nil
}

func (s *checkoutService) ConfirmPayment(ctx context.Context, userID, orderID, gatewayOrderID, gatewayPaymentID, signature string) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && order.UserID != userID {
		return nil, ErrNotOrderOwner
	}

	// Webhooks are delivered at least once; a replay of a settled payment is
	// success, with at most a crash-recovery re-commit of the hold.
	if order.PaymentStatus == domain.PaymentPaid && order.GatewayPaymentID == gatewayPaymentID {
		if err := s.ledger.CommitHold(ctx, order.ReservationID); err != nil {
			return nil, err
		}
		return order, nil
	}

	if order.GatewayOrderID != gatewayOrderID {
		s.metrics.RecordPaymentFailure("gateway_mismatch")
		s.logger.Warn("gateway order id mismatch on payment confirmation",
			"order_id", orderID,
			"expected", order.GatewayOrderID,
			"got", gatewayOrderID)
		return nil, fmt.Errorf("%w: gateway order id does not match", ErrGatewayOrderMismatch)
	}

	if err := s.gateway.VerifySignature(gatewayOrderID, gatewayPaymentID, signature); err != nil {
		if !errors.Is(err, billing.ErrSignatureInvalid) {
			return nil, err
		}
		s.metrics.RecordPaymentFailure("signature_invalid")
		s.logger.Warn("payment signature rejected",
			"order_id", orderID,
			"gateway_payment_id", gatewayPaymentID)

		failed, ferr := s.orders.MarkPaymentFailed(ctx, orderID, "payment signature rejected")
		if ferr != nil {
			return nil, ferr
		}
		s.releaseHold(ctx, order.ReservationID, orderID, "payment signature rejected")
		s.publish(ctx, events.SubjectOrderFailed, events.OrderEvent{
			OrderID:       failed.ID,
			UserID:        failed.UserID,
			OrderStatus:   string(failed.OrderStatus),
			PaymentStatus: string(failed.PaymentStatus),
			Reason:        "signature_invalid",
		})
		return nil, ErrSignatureRejected
	}

	paid, err := s.orders.MarkPaid(ctx, orderID, gatewayPaymentID, signature)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.CommitHold(ctx, paid.ReservationID); err != nil {
		return nil, err
	}

	s.metrics.RecordOrderPaid()
	s.publish(ctx, events.SubjectOrderPaid, events.OrderEvent{
		OrderID:       paid.ID,
		UserID:        paid.UserID,
		OrderStatus:   string(paid.OrderStatus),
		PaymentStatus: string(paid.PaymentStatus),
		Total:         paid.Total,
	})
	return paid, nil
}

func (s *checkoutService) loadProducts(ctx context.Context, lines []domain.CartLine) (map[string]domain.Product, error) {
	products := make(map[string]domain.Product, len(lines))
	for _, line := range lines {
		if _, ok := products[line.ProductID]; ok {
			continue
		}
		p, err := s.products.Get(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
			}
			return nil, err
		}
		products[line.ProductID] = p
	}
	return products, nil
}

// createGatewayOrder retries transient gateway failures with exponential
// backoff. The stock hold stays in place during retries; the reservation
// window bounds the worst case.
func (s *checkoutService) createGatewayOrder(ctx context.Context, orderID string, amount int64) (*billing.GatewayOrder, error) {
	var out *billing.GatewayOrder
	operation := func() error {
		gw, err := s.gateway.CreateOrder(ctx, billing.CreateOrderParams{
			Amount:   amount,
			Currency: s.cfg.Currency,
			Receipt:  orderID,
			Notes:    map[string]interface{}{"order_id": orderID},
		})
		if err != nil {
			if errors.Is(err, billing.ErrGatewayUnavailable) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = gw
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.GatewayRetryInterval
	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, s.cfg.GatewayRetryMax), ctx))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *checkoutService) releaseHold(ctx context.Context, holdID, orderID, reason string) {
	if err := s.ledger.ReleaseHold(ctx, holdID); err != nil {
		s.logger.Error("failed to release stock hold",
			"hold_id", holdID,
			"order_id", orderID,
			"reason", reason,
			"error", err)
	}
}

func (s *checkoutService) publish(ctx context.Context, subject string, event events.OrderEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now()
	if err := s.events.Publish(ctx, subject, event); err != nil {
		s.logger.Warn("failed to publish order event", "subject", subject, "error", err)
	}
}

func orderItems(lines []pricing.Line) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			ProductID: l.ProductID,
			Title:     l.Title,
			Size:      l.Size,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		})
	}
	return items
}
