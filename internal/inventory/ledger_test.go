package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thokbazaar/server/internal/domain"
	"github.com/thokbazaar/server/internal/store"
)

func newTestLedger(t *testing.T, ttl time.Duration) (*Ledger, store.Docs[domain.Product], store.Docs[domain.Reservation]) {
	t.Helper()
	products := store.NewMemory[domain.Product]()
	reservations := store.NewMemory[domain.Reservation]()
	return NewLedger(products, reservations, ttl), products, reservations
}

func seedWholesale(t *testing.T, products store.Docs[domain.Product], id string, available int32) {
	t.Helper()
	err := products.Create(context.Background(), id, domain.Product{
		ID:                id,
		Title:             "Terry Kurta Bundle",
		Kind:              domain.ProductWholesale,
		BundleQty:         10,
		BundleComposition: map[string]int32{"M": 4, "L": 4, "XL": 2},
		BundlePrice:       50000,
		AvailableBundles:  available,
	})
	require.NoError(t, err)
}

func TestLedger_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements stock", func(t *testing.T) {
		ledger, products, _ := newTestLedger(t, time.Hour)
		seedWholesale(t, products, "prod-1", 5)

		require.NoError(t, ledger.Reserve(ctx, "prod-1", "", 3))

		p, err := products.Get(ctx, "prod-1")
		require.NoError(t, err)
		assert.Equal(t, int32(2), p.AvailableBundles)
	})

	t.Run("rejects insufficient stock without partial decrement", func(t *testing.T) {
		ledger, products, _ := newTestLedger(t, time.Hour)
		seedWholesale(t, products, "prod-1", 2)

		err := ledger.Reserve(ctx, "prod-1", "", 3)
		require.Error(t, err)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))

		p, err := products.Get(ctx, "prod-1")
		require.NoError(t, err)
		assert.Equal(t, int32(2), p.AvailableBundles)
	})

	t.Run("unknown product", func(t *testing.T) {
		ledger, _, _ := newTestLedger(t, time.Hour)
		err := ledger.Reserve(ctx, "nope", "", 1)
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		ledger, products, _ := newTestLedger(t, time.Hour)
		seedWholesale(t, products, "prod-1", 5)
		err := ledger.Reserve(ctx, "prod-1", "", 0)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("retail stock is tracked per size", func(t *testing.T) {
		ledger, products, _ := newTestLedger(t, time.Hour)
		err := products.Create(ctx, "tee-1", domain.Product{
			ID:          "tee-1",
			Title:       "Crew Tee",
			Kind:        domain.ProductRetail,
			BasePrice:   79900,
			StockBySize: map[string]int32{"M": 2, "L": 1},
		})
		require.NoError(t, err)

		require.NoError(t, ledger.Reserve(ctx, "tee-1", "M", 2))

		err = ledger.Reserve(ctx, "tee-1", "M", 1)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))

		require.NoError(t, ledger.Reserve(ctx, "tee-1", "L", 1))
	})
}

// Five bundles, three concurrent buyers wanting two each. Exactly one buyer
// must lose; the other two drain the stock to one.
func TestLedger_Reserve_Concurrent(t *testing.T) {
	ctx := context.Background()
	ledger, products, _ := newTestLedger(t, time.Hour)
	seedWholesale(t, products, "prod-1", 5)

	var wg sync.WaitGroup
	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.Reserve(ctx, "prod-1", "", 2)
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflict int
	for err := range results {
		if err == nil {
			ok++
		} else if domain.ErrorCode(err) == domain.ECONFLICT {
			conflict++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, conflict)

	p, err := products.Get(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.AvailableBundles)
}

func TestLedger_ReleaseAndCommit(t *testing.T) {
	ctx := context.Background()
	ledger, products, _ := newTestLedger(t, time.Hour)
	seedWholesale(t, products, "prod-1", 5)

	require.NoError(t, ledger.Reserve(ctx, "prod-1", "", 2))
	require.NoError(t, ledger.Release(ctx, "prod-1", "", 2))

	p, err := products.Get(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, int32(5), p.AvailableBundles)
	assert.False(t, p.IsLocked)

	require.NoError(t, ledger.Commit(ctx, "prod-1"))
	p, err = products.Get(ctx, "prod-1")
	require.NoError(t, err)
	assert.True(t, p.IsLocked)
	assert.Equal(t, int32(5), p.AvailableBundles, "commit must not touch counters")

	// Commit is idempotent.
	require.NoError(t, ledger.Commit(ctx, "prod-1"))
}

func TestLedger_Hold(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves all lines and records expiry", func(t *testing.T) {
		ledger, products, reservations := newTestLedger(t, 15*time.Minute)
		seedWholesale(t, products, "prod-1", 5)
		seedWholesale(t, products, "prod-2", 3)

		before := time.Now()
		res, err := ledger.Hold(ctx, "hold-1", "order-1", []domain.ReservedLine{
			{ProductID: "prod-1", Quantity: 2},
			{ProductID: "prod-2", Quantity: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationHeld, res.State)
		assert.True(t, res.ExpiresAt.After(before.Add(14*time.Minute)))

		p1, _ := products.Get(ctx, "prod-1")
		p2, _ := products.Get(ctx, "prod-2")
		assert.Equal(t, int32(3), p1.AvailableBundles)
		assert.Equal(t, int32(2), p2.AvailableBundles)

		stored, err := reservations.Get(ctx, "hold-1")
		require.NoError(t, err)
		assert.Equal(t, "order-1", stored.OrderID)
	})

	t.Run("compensates on partial failure", func(t *testing.T) {
		ledger, products, reservations := newTestLedger(t, 15*time.Minute)
		seedWholesale(t, products, "prod-1", 5)
		seedWholesale(t, products, "prod-2", 1)

		_, err := ledger.Hold(ctx, "hold-1", "order-1", []domain.ReservedLine{
			{ProductID: "prod-1", Quantity: 2},
			{ProductID: "prod-2", Quantity: 2},
		})
		require.Error(t, err)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))

		p1, _ := products.Get(ctx, "prod-1")
		p2, _ := products.Get(ctx, "prod-2")
		assert.Equal(t, int32(5), p1.AvailableBundles, "first line must be released")
		assert.Equal(t, int32(1), p2.AvailableBundles)

		_, err = reservations.Get(ctx, "hold-1")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("rejects empty hold", func(t *testing.T) {
		ledger, _, _ := newTestLedger(t, 15*time.Minute)
		_, err := ledger.Hold(ctx, "hold-1", "order-1", nil)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})
}

func TestLedger_ReleaseHold(t *testing.T) {
	ctx := context.Background()
	lines := []domain.ReservedLine{{ProductID: "prod-1", Quantity: 2}}

	t.Run("restocks and is idempotent", func(t *testing.T) {
		ledger, products, reservations := newTestLedger(t, time.Hour)
		seedWholesale(t, products, "prod-1", 5)
		_, err := ledger.Hold(ctx, "hold-1", "order-1", lines)
		require.NoError(t, err)

		require.NoError(t, ledger.ReleaseHold(ctx, "hold-1"))
		require.NoError(t, ledger.ReleaseHold(ctx, "hold-1"), "second release is a no-op")

		p, _ := products.Get(ctx, "prod-1")
		assert.Equal(t, int32(5), p.AvailableBundles, "stock released exactly once")

		r, err := reservations.Get(ctx, "hold-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationReleased, r.State)
	})

	t.Run("conflicts with committed hold", func(t *testing.T) {
		ledger, products, _ := newTestLedger(t, time.Hour)
		seedWholesale(t, products, "prod-1", 5)
		_, err := ledger.Hold(ctx, "hold-1", "order-1", lines)
		require.NoError(t, err)
		require.NoError(t, ledger.CommitHold(ctx, "hold-1"))

		err = ledger.ReleaseHold(ctx, "hold-1")
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	})
}

func TestLedger_CommitHold(t *testing.T) {
	ctx := context.Background()
	lines := []domain.ReservedLine{{ProductID: "prod-1", Quantity: 2}}

	t.Run("locks products and is idempotent", func(t *testing.T) {
		ledger, products, reservations := newTestLedger(t, time.Hour)
		seedWholesale(t, products, "prod-1", 5)
		_, err := ledger.Hold(ctx, "hold-1", "order-1", lines)
		require.NoError(t, err)

		require.NoError(t, ledger.CommitHold(ctx, "hold-1"))
		require.NoError(t, ledger.CommitHold(ctx, "hold-1"), "replayed commit is a no-op")

		p, _ := products.Get(ctx, "prod-1")
		assert.True(t, p.IsLocked)
		assert.Equal(t, int32(3), p.AvailableBundles, "committed stock stays decremented")

		r, err := reservations.Get(ctx, "hold-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationCommitted, r.State)
	})

	t.Run("conflicts with released hold", func(t *testing.T) {
		ledger, products, _ := newTestLedger(t, time.Hour)
		seedWholesale(t, products, "prod-1", 5)
		_, err := ledger.Hold(ctx, "hold-1", "order-1", lines)
		require.NoError(t, err)
		require.NoError(t, ledger.ReleaseHold(ctx, "hold-1"))

		err = ledger.CommitHold(ctx, "hold-1")
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	})
}

func TestLedger_SweepExpired(t *testing.T) {
	ctx := context.Background()
	ledger, products, reservations := newTestLedger(t, time.Minute)
	seedWholesale(t, products, "prod-1", 5)
	seedWholesale(t, products, "prod-2", 5)

	now := time.Now()
	ledger.now = func() time.Time { return now }

	_, err := ledger.Hold(ctx, "hold-old", "order-1", []domain.ReservedLine{{ProductID: "prod-1", Quantity: 2}})
	require.NoError(t, err)
	_, err = ledger.Hold(ctx, "hold-new", "order-2", []domain.ReservedLine{{ProductID: "prod-2", Quantity: 1}})
	require.NoError(t, err)

	// Commit hold-new so expiry can never touch it, then move past the window.
	require.NoError(t, ledger.CommitHold(ctx, "hold-new"))
	ledger.now = func() time.Time { return now.Add(2 * time.Minute) }

	released, err := ledger.SweepExpired(ctx)
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, "hold-old", released[0].ID)
	assert.Equal(t, "order-1", released[0].OrderID)

	p1, _ := products.Get(ctx, "prod-1")
	p2, _ := products.Get(ctx, "prod-2")
	assert.Equal(t, int32(5), p1.AvailableBundles)
	assert.Equal(t, int32(4), p2.AvailableBundles)

	r, err := reservations.Get(ctx, "hold-old")
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationReleased, r.State)

	// A second sweep finds nothing.
	released, err = ledger.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, released)
}
