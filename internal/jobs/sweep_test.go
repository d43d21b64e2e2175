package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thokbazaar/server/internal/domain"
	"github.com/thokbazaar/server/internal/events"
	"github.com/thokbazaar/server/internal/inventory"
	"github.com/thokbazaar/server/internal/service"
	"github.com/thokbazaar/server/internal/store"
)

type sweepFixture struct {
	sweeper  *Sweeper
	ledger   *inventory.Ledger
	orders   service.OrderService
	products store.Docs[domain.Product]
	events   *events.NoopPublisher
}

// A negative hold window makes every hold expired the moment it is created.
func newSweepFixture(t *testing.T, ttl time.Duration) *sweepFixture {
	t.Helper()

	products := store.NewMemory[domain.Product]()
	reservations := store.NewMemory[domain.Reservation]()
	orderDocs := store.NewMemory[domain.Order]()

	require.NoError(t, products.Create(context.Background(), "prod-1", domain.Product{
		ID:                "prod-1",
		Title:             "Terry Kurta Bundle",
		Kind:              domain.ProductWholesale,
		BundleQty:         10,
		BundleComposition: map[string]int32{"M": 5, "L": 5},
		BundlePrice:       50000,
		AvailableBundles:  5,
	}))

	ledger := inventory.NewLedger(products, reservations, ttl)
	orders := service.NewOrderService(orderDocs, nil)
	publisher := events.NewNoopPublisher()

	return &sweepFixture{
		sweeper:  NewSweeper(ledger, orders, publisher, nil, time.Minute, nil),
		ledger:   ledger,
		orders:   orders,
		products: products,
		events:   publisher,
	}
}

func (f *sweepFixture) placePending(t *testing.T, orderID string, qty int32) {
	t.Helper()
	ctx := context.Background()
	holdID := "hold-" + orderID

	_, err := f.ledger.Hold(ctx, holdID, orderID, []domain.ReservedLine{
		{ProductID: "prod-1", Quantity: qty},
	})
	require.NoError(t, err)

	require.NoError(t, f.orders.Create(ctx, domain.Order{
		ID:            orderID,
		UserID:        "user-1",
		Total:         int64(qty) * 59000,
		OrderStatus:   domain.OrderPlaced,
		PaymentStatus: domain.PaymentPending,
		ReservationID: holdID,
		CreatedAt:     time.Now(),
	}))
}

func TestSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("expired hold fails the order and restocks", func(t *testing.T) {
		f := newSweepFixture(t, -time.Minute)
		f.placePending(t, "order-1", 2)

		require.NoError(t, f.sweeper.SweepOnce(ctx))

		p, err := f.products.Get(ctx, "prod-1")
		require.NoError(t, err)
		assert.Equal(t, int32(5), p.AvailableBundles)

		order, err := f.orders.Get(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentFailed, order.PaymentStatus)
		assert.Equal(t, domain.OrderCancelled, order.OrderStatus)
		assert.Equal(t, "reservation expired", order.StatusHistory[len(order.StatusHistory)-1].Notes)

		published := f.events.Events()
		require.Len(t, published, 1)
		assert.Equal(t, events.SubjectStockExpired, published[0].Subject)
		assert.Equal(t, "order-1", published[0].Event.OrderID)

		// The next pass finds nothing.
		require.NoError(t, f.sweeper.SweepOnce(ctx))
		assert.Len(t, f.events.Events(), 1)
	})

	t.Run("live holds are untouched", func(t *testing.T) {
		f := newSweepFixture(t, time.Hour)
		f.placePending(t, "order-1", 2)

		require.NoError(t, f.sweeper.SweepOnce(ctx))

		p, err := f.products.Get(ctx, "prod-1")
		require.NoError(t, err)
		assert.Equal(t, int32(3), p.AvailableBundles, "hold still in place")

		order, err := f.orders.Get(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, order.PaymentStatus)
	})

	t.Run("committed holds never expire", func(t *testing.T) {
		f := newSweepFixture(t, -time.Minute)
		f.placePending(t, "order-1", 2)
		_, err := f.orders.MarkPaid(ctx, "order-1", "pay_1", "sig")
		require.NoError(t, err)
		require.NoError(t, f.ledger.CommitHold(ctx, "hold-order-1"))

		require.NoError(t, f.sweeper.SweepOnce(ctx))

		p, err := f.products.Get(ctx, "prod-1")
		require.NoError(t, err)
		assert.Equal(t, int32(3), p.AvailableBundles, "committed stock stays sold")

		order, err := f.orders.Get(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPaid, order.PaymentStatus)
		assert.Empty(t, f.events.Events())
	})
}

func TestSweeper_Run_StopsOnCancel(t *testing.T) {
	f := newSweepFixture(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancellation")
	}
}
