package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const txMaxAttempts = 5

// firestoreDocs is a Docs implementation over one Firestore collection.
// Mutate maps onto a Firestore transaction (optimistic concurrency with
// bounded retries), which is the per-document linearizable primitive the
// inventory ledger relies on.
type firestoreDocs[T any] struct {
	client     *firestore.Client
	collection string
}

// NewFirestore binds a typed collection to a Firestore client.
func NewFirestore[T any](client *firestore.Client, collection string) Docs[T] {
	return &firestoreDocs[T]{client: client, collection: collection}
}

func (f *firestoreDocs[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	snap, err := f.client.Collection(f.collection).Doc(id).Get(ctx)
	if err != nil {
		return zero, f.wrap("get", id, err)
	}

	var value T
	if err := snap.DataTo(&value); err != nil {
		return zero, fmt.Errorf("store: %s: decode %s: %w", f.collection, id, err)
	}
	return value, nil
}

func (f *firestoreDocs[T]) Create(ctx context.Context, id string, value T) error {
	_, err := f.client.Collection(f.collection).Doc(id).Create(ctx, value)
	return f.wrap("create", id, err)
}

func (f *firestoreDocs[T]) Set(ctx context.Context, id string, value T) error {
	_, err := f.client.Collection(f.collection).Doc(id).Set(ctx, value)
	return f.wrap("set", id, err)
}

func (f *firestoreDocs[T]) Delete(ctx context.Context, id string) error {
	_, err := f.client.Collection(f.collection).Doc(id).Delete(ctx)
	return f.wrap("delete", id, err)
}

func (f *firestoreDocs[T]) List(ctx context.Context) ([]T, error) {
	iter := f.client.Collection(f.collection).Documents(ctx)
	defer iter.Stop()

	var out []T
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, f.wrap("list", "", err)
		}

		var value T
		if err := snap.DataTo(&value); err != nil {
			return nil, fmt.Errorf("store: %s: decode %s: %w", f.collection, snap.Ref.ID, err)
		}
		out = append(out, value)
	}
	return out, nil
}

func (f *firestoreDocs[T]) Mutate(ctx context.Context, id string, fn func(*T) error) error {
	doc := f.client.Collection(f.collection).Doc(id)

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(doc)
		if err != nil {
			return err
		}

		var value T
		if err := snap.DataTo(&value); err != nil {
			return fmt.Errorf("store: %s: decode %s: %w", f.collection, id, err)
		}

		if err := fn(&value); err != nil {
			return err
		}
		return tx.Set(doc, value)
	}, firestore.MaxAttempts(txMaxAttempts))

	return f.wrap("mutate", id, err)
}

// wrap translates gRPC status codes into the store sentinels. Context
// cancellations and already-translated errors pass through unchanged.
func (f *firestoreDocs[T]) wrap(op, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExists) {
		return err
	}

	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrExists, id)
	}
	return fmt.Errorf("store: %s.%s %s: %w", f.collection, op, id, err)
}
