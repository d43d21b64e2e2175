// Package inventory enforces that bundle stock is never oversold. All stock
// movement goes through per-product atomic read-modify-write; a hold groups
// the per-line reservations for one checkout attempt and carries the expiry
// window the sweep enforces.
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/thokbazaar/server/internal/domain"
	"github.com/thokbazaar/server/internal/store"
)

// errNoop signals from inside a Mutate closure that the document is already
// in the requested state and the write should be skipped.
var errNoop = errors.New("inventory: already in requested state")

// Ledger owns availableBundles (and stockBySize for retail) plus the
// reservation records. It is safe for concurrent use; linearizability per
// product comes from the store's Mutate primitive.
type Ledger struct {
	products     store.Docs[domain.Product]
	reservations store.Docs[domain.Reservation]
	ttl          time.Duration
	now          func() time.Time
}

// NewLedger creates a Ledger with the given reservation hold window.
func NewLedger(products store.Docs[domain.Product], reservations store.Docs[domain.Reservation], ttl time.Duration) *Ledger {
	return &Ledger{
		products:     products,
		reservations: reservations,
		ttl:          ttl,
		now:          time.Now,
	}
}

// Reserve atomically decrements available stock by qty iff enough remains.
// Concurrent reservations on the same product never oversell: the compare and
// the decrement happen inside one atomic mutation.
func (l *Ledger) Reserve(ctx context.Context, productID, size string, qty int32) error {
	const op = "inventory.reserve"

	if qty <= 0 {
		return domain.Invalid(op, "Quantity must be greater than 0")
	}

	err := l.products.Mutate(ctx, productID, func(p *domain.Product) error {
		if p.Available(size) < qty {
			return domain.Errorf(domain.ECONFLICT, op, "Insufficient stock for %s", p.Title)
		}
		l.adjust(p, size, -qty)
		p.UpdatedAt = l.now()
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.NotFound(op, "product", productID)
	}
	return err
}

// Release atomically returns qty units to availability. Used on payment
// failure, cancellation, compensation, and expiry.
func (l *Ledger) Release(ctx context.Context, productID, size string, qty int32) error {
	const op = "inventory.release"

	if qty <= 0 {
		return domain.Invalid(op, "Quantity must be greater than 0")
	}

	err := l.products.Mutate(ctx, productID, func(p *domain.Product) error {
		l.adjust(p, size, qty)
		p.UpdatedAt = l.now()
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.NotFound(op, "product", productID)
	}
	return err
}

// Commit marks a reservation permanent for one product. The counter was
// already decremented at Reserve time; the only mutation is the isLocked
// flip, which freezes composition and price forever.
func (l *Ledger) Commit(ctx context.Context, productID string) error {
	const op = "inventory.commit"

	err := l.products.Mutate(ctx, productID, func(p *domain.Product) error {
		if p.IsLocked {
			return errNoop
		}
		p.IsLocked = true
		p.UpdatedAt = l.now()
		return nil
	})
	if errors.Is(err, errNoop) {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return domain.NotFound(op, "product", productID)
	}
	return err
}

func (l *Ledger) adjust(p *domain.Product, size string, delta int32) {
	if p.Kind == domain.ProductRetail {
		if p.StockBySize == nil {
			p.StockBySize = make(map[string]int32)
		}
		p.StockBySize[size] += delta
		return
	}
	p.AvailableBundles += delta
}

// Hold reserves every line all-or-nothing and persists a reservation record
// with the expiry window. On any line failure the already-reserved lines are
// released in reverse order before the error is returned; there is no
// cross-document transaction to lean on.
func (l *Ledger) Hold(ctx context.Context, holdID, orderID string, lines []domain.ReservedLine) (*domain.Reservation, error) {
	const op = "inventory.hold"

	if len(lines) == 0 {
		return nil, domain.Invalid(op, "No lines to reserve")
	}

	reserved := 0
	for _, line := range lines {
		if err := l.Reserve(ctx, line.ProductID, line.Size, line.Quantity); err != nil {
			l.compensate(ctx, lines[:reserved])
			return nil, err
		}
		reserved++
	}

	now := l.now()
	reservation := domain.Reservation{
		ID:        holdID,
		OrderID:   orderID,
		Lines:     lines,
		State:     domain.ReservationHeld,
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := l.reservations.Create(ctx, holdID, reservation); err != nil {
		l.compensate(ctx, lines)
		return nil, domain.Internal(err, op, "Failed to record reservation")
	}

	return &reservation, nil
}

func (l *Ledger) compensate(ctx context.Context, lines []domain.ReservedLine) {
	for i := len(lines) - 1; i >= 0; i-- {
		// Best effort: a failed release leaves stock low, never oversold.
		_ = l.Release(ctx, lines[i].ProductID, lines[i].Size, lines[i].Quantity)
	}
}

// ReleaseHold returns a hold's stock and marks the record released. Only the
// caller that wins the held→released transition touches the counters, so a
// racing sweep and payment-failure path cannot double-release. Releasing an
// already-released hold is a no-op; releasing a committed hold is a conflict.
func (l *Ledger) ReleaseHold(ctx context.Context, holdID string) error {
	const op = "inventory.release_hold"

	var lines []domain.ReservedLine
	err := l.reservations.Mutate(ctx, holdID, func(r *domain.Reservation) error {
		switch r.State {
		case domain.ReservationReleased:
			return errNoop
		case domain.ReservationCommitted:
			return domain.Conflict(op, "Reservation already committed")
		}
		r.State = domain.ReservationReleased
		r.UpdatedAt = l.now()
		lines = r.Lines
		return nil
	})
	if errors.Is(err, errNoop) {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return domain.NotFound(op, "reservation", holdID)
	}
	if err != nil {
		return err
	}

	for _, line := range lines {
		if err := l.Release(ctx, line.ProductID, line.Size, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// CommitHold makes a hold permanent and locks every product in it.
// Committing an already-committed hold is a no-op, which is what makes a
// replayed payment confirmation safe. Committing a released hold is a
// conflict: the stock is gone.
func (l *Ledger) CommitHold(ctx context.Context, holdID string) error {
	const op = "inventory.commit_hold"

	var lines []domain.ReservedLine
	err := l.reservations.Mutate(ctx, holdID, func(r *domain.Reservation) error {
		switch r.State {
		case domain.ReservationCommitted:
			return errNoop
		case domain.ReservationReleased:
			return domain.Conflict(op, "Reservation already released")
		}
		r.State = domain.ReservationCommitted
		r.UpdatedAt = l.now()
		lines = r.Lines
		return nil
	})
	if errors.Is(err, errNoop) {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return domain.NotFound(op, "reservation", holdID)
	}
	if err != nil {
		return err
	}

	for _, line := range lines {
		if err := l.Commit(ctx, line.ProductID); err != nil {
			return err
		}
	}
	return nil
}

// SweepExpired releases every held reservation past its window and returns
// the reservations it released, so the caller can fail the matching orders.
// Safe to run concurrently with checkout traffic: expiry is re-checked
// inside the atomic transition.
func (l *Ledger) SweepExpired(ctx context.Context) ([]domain.Reservation, error) {
	all, err := l.reservations.List(ctx)
	if err != nil {
		return nil, err
	}

	now := l.now()
	var released []domain.Reservation
	for _, r := range all {
		if !r.Expired(now) {
			continue
		}

		var lines []domain.ReservedLine
		err := l.reservations.Mutate(ctx, r.ID, func(cur *domain.Reservation) error {
			if !cur.Expired(now) {
				return errNoop
			}
			cur.State = domain.ReservationReleased
			cur.UpdatedAt = now
			lines = cur.Lines
			return nil
		})
		if errors.Is(err, errNoop) || errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return released, err
		}

		for _, line := range lines {
			if err := l.Release(ctx, line.ProductID, line.Size, line.Quantity); err != nil {
				return released, err
			}
		}

		r.State = domain.ReservationReleased
		released = append(released, r)
	}
	return released, nil
}
