// Package store abstracts the document store behind typed collections with
// single-document atomicity. The core assumes no cross-document transactions;
// multi-document flows are built as compensating-action sequences on top.
package store

import (
	"context"
	"errors"
)

// Sentinel errors shared by all implementations. Services wrap these into
// domain errors at the boundary.
var (
	ErrNotFound = errors.New("store: document not found")
	ErrExists   = errors.New("store: document already exists")
)

// Docs is a typed document collection. Mutate is the single-document atomic
// read-modify-write primitive: the function sees the current value and its
// returned value is written only if no concurrent writer interfered. A
// non-nil error from fn aborts the write and is returned verbatim.
type Docs[T any] interface {
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, id string, value T) error
	Set(ctx context.Context, id string, value T) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]T, error)
	Mutate(ctx context.Context, id string, fn func(*T) error) error
}
