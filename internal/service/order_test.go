package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thokbazaar/server/internal/domain"
	"github.com/thokbazaar/server/internal/events"
	"github.com/thokbazaar/server/internal/store"
)

func newOrderFixture(t *testing.T) (OrderService, store.Docs[domain.Order]) {
	t.Helper()
	orders := store.NewMemory[domain.Order]()
	return NewOrderService(orders, nil), orders
}

func seedOrder(t *testing.T, svc OrderService, id string, mods ...func(*domain.Order)) {
	t.Helper()
	now := time.Now()
	order := domain.Order{
		ID:            id,
		UserID:        "user-1",
		Subtotal:      150000,
		TaxRate:       0.18,
		Tax:           27000,
		Total:         177000,
		OrderStatus:   domain.OrderPlaced,
		PaymentStatus: domain.PaymentPending,
		ReservationID: "hold-" + id,
		CreatedAt:     now,
	}
	order.AppendHistory(now, "order placed")
	for _, mod := range mods {
		mod(&order)
	}
	require.NoError(t, svc.Create(context.Background(), order))
}

func TestOrderService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("legal transition appends history", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		updated, err := svc.UpdateStatus(ctx, "order-1", domain.OrderProcessing, "packing started")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderProcessing, updated.OrderStatus)
		require.Len(t, updated.StatusHistory, 2)
		assert.Equal(t, "packing started", updated.StatusHistory[1].Notes)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		updated, err := svc.UpdateStatus(ctx, "order-1", domain.OrderPlaced, "dup callback")
		require.NoError(t, err)
		assert.Len(t, updated.StatusHistory, 1, "no history entry for a no-op")
	})

	t.Run("delivered cannot go back to processing", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1", func(o *domain.Order) {
			o.OrderStatus = domain.OrderDelivered
		})

		_, err := svc.UpdateStatus(ctx, "order-1", domain.OrderProcessing, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1", func(o *domain.Order) {
			o.OrderStatus = domain.OrderCancelled
		})

		_, err := svc.UpdateStatus(ctx, "order-1", domain.OrderProcessing, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		_, err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatus("teleported"), "")
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("unknown order", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		_, err := svc.UpdateStatus(ctx, "missing", domain.OrderProcessing, "")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestOrderService_UpdateStatus_PublishesStatusEvent(t *testing.T) {
	ctx := context.Background()
	orders := store.NewMemory[domain.Order]()
	publisher := events.NewNoopPublisher()
	svc := NewOrderService(orders, publisher)
	seedOrder(t, svc, "order-1")

	updated, err := svc.UpdateStatus(ctx, "order-1", domain.OrderProcessing, "packing started")
	require.NoError(t, err)

	published := publisher.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.SubjectOrderStatus, published[0].Subject)
	assert.Equal(t, "order-1", published[0].Event.OrderID)
	assert.Equal(t, string(domain.OrderProcessing), published[0].Event.OrderStatus)
	assert.Equal(t, string(domain.PaymentPending), published[0].Event.PaymentStatus)
	assert.Equal(t, updated.Total, published[0].Event.Total)
	assert.False(t, published[0].Event.OccurredAt.IsZero())

	// A replayed transition and a rejected one stay silent.
	_, err = svc.UpdateStatus(ctx, "order-1", domain.OrderProcessing, "again")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, "order-1", domain.OrderDelivered, "")
	require.Error(t, err)
	assert.Len(t, publisher.Events(), 1)
}

func TestOrderService_MarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("pending to paid records gateway ids", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		paid, err := svc.MarkPaid(ctx, "order-1", "pay_123", "sig_abc")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPaid, paid.PaymentStatus)
		assert.Equal(t, domain.OrderProcessing, paid.OrderStatus)
		assert.Equal(t, "pay_123", paid.GatewayPaymentID)
		assert.Equal(t, "sig_abc", paid.GatewaySignature)
	})

	t.Run("replay with same payment id is a no-op", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		first, err := svc.MarkPaid(ctx, "order-1", "pay_123", "sig_abc")
		require.NoError(t, err)
		second, err := svc.MarkPaid(ctx, "order-1", "pay_123", "sig_abc")
		require.NoError(t, err)
		assert.Equal(t, len(first.StatusHistory), len(second.StatusHistory))
	})

	t.Run("failed order cannot be paid", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		_, err := svc.MarkPaymentFailed(ctx, "order-1", "reservation expired")
		require.NoError(t, err)
		_, err = svc.MarkPaid(ctx, "order-1", "pay_123", "sig_abc")
		assert.ErrorIs(t, err, ErrPaymentFinal)
	})
}

func TestOrderService_MarkPaymentFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("pending to failed cancels the order", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		failed, err := svc.MarkPaymentFailed(ctx, "order-1", "payment signature rejected")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentFailed, failed.PaymentStatus)
		assert.Equal(t, domain.OrderCancelled, failed.OrderStatus)
		assert.Equal(t, "payment signature rejected", failed.StatusHistory[len(failed.StatusHistory)-1].Notes)
	})

	t.Run("already failed is a no-op", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		_, err := svc.MarkPaymentFailed(ctx, "order-1", "first")
		require.NoError(t, err)
		failed, err := svc.MarkPaymentFailed(ctx, "order-1", "second")
		require.NoError(t, err)
		assert.Equal(t, "first", failed.StatusHistory[len(failed.StatusHistory)-1].Notes)
	})

	t.Run("paid order cannot fail", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		_, err := svc.MarkPaid(ctx, "order-1", "pay_123", "sig_abc")
		require.NoError(t, err)
		_, err = svc.MarkPaymentFailed(ctx, "order-1", "too late")
		assert.ErrorIs(t, err, ErrPaymentFinal)
	})
}

func TestOrderService_ApplyAdminDiscount(t *testing.T) {
	ctx := context.Background()

	t.Run("sets absolute discount and recomputes total", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		updated, err := svc.ApplyAdminDiscount(ctx, "order-1", 20000, "loyal wholesale customer")
		require.NoError(t, err)
		assert.Equal(t, int64(20000), updated.AdminDiscount)
		assert.Equal(t, int64(157000), updated.Total)

		// Absolute, not additive: a retry or correction lands on the new
		// amount, never stacks.
		updated, err = svc.ApplyAdminDiscount(ctx, "order-1", 5000, "corrected discount value")
		require.NoError(t, err)
		assert.Equal(t, int64(5000), updated.AdminDiscount)
		assert.Equal(t, int64(172000), updated.Total)
	})

	t.Run("repeated identical request is a no-op", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		first, err := svc.ApplyAdminDiscount(ctx, "order-1", 20000, "loyal wholesale customer")
		require.NoError(t, err)
		second, err := svc.ApplyAdminDiscount(ctx, "order-1", 20000, "loyal wholesale customer")
		require.NoError(t, err)
		assert.Equal(t, len(first.StatusHistory), len(second.StatusHistory))
	})

	t.Run("reason too short", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		_, err := svc.ApplyAdminDiscount(ctx, "order-1", 1000, "because")
		assert.ErrorIs(t, err, ErrDiscountReasonTooShort)
	})

	t.Run("negative amount", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		_, err := svc.ApplyAdminDiscount(ctx, "order-1", -1, "goodwill adjustment")
		assert.ErrorIs(t, err, ErrNegativeDiscount)
	})

	t.Run("amount above discountable bound", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		_, err := svc.ApplyAdminDiscount(ctx, "order-1", 177001, "goodwill adjustment")
		assert.ErrorIs(t, err, ErrDiscountExceedsOrder)
	})

	t.Run("shipped order cannot be discounted", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1", func(o *domain.Order) {
			o.OrderStatus = domain.OrderShipped
		})

		_, err := svc.ApplyAdminDiscount(ctx, "order-1", 1000, "goodwill adjustment")
		assert.ErrorIs(t, err, ErrOrderNotDiscountable)
	})

	t.Run("paid order can still be discounted while processing", func(t *testing.T) {
		svc, _ := newOrderFixture(t)
		seedOrder(t, svc, "order-1")

		_, err := svc.MarkPaid(ctx, "order-1", "pay_123", "sig_abc")
		require.NoError(t, err)

		updated, err := svc.ApplyAdminDiscount(ctx, "order-1", 10000, "goodwill adjustment")
		require.NoError(t, err)
		assert.Equal(t, int64(167000), updated.Total)
	})
}

func TestOrderService_ListByUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOrderFixture(t)

	base := time.Now()
	seedOrder(t, svc, "order-old", func(o *domain.Order) { o.CreatedAt = base.Add(-time.Hour) })
	seedOrder(t, svc, "order-new", func(o *domain.Order) { o.CreatedAt = base })
	seedOrder(t, svc, "order-other", func(o *domain.Order) {
		o.UserID = "user-2"
		o.CreatedAt = base
	})

	orders, err := svc.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order-new", orders[0].ID, "newest first")
	assert.Equal(t, "order-old", orders[1].ID)

	empty, err := svc.ListByUser(ctx, "user-none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
