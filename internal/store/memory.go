package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// memoryDocs is an in-memory Docs implementation backing tests and local
// development. Documents are stored as JSON so reads return deep copies and
// callers can never alias internal state. A collection-wide mutex makes
// Mutate linearizable, matching the Firestore transaction guarantee.
type memoryDocs[T any] struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemory creates an empty in-memory collection.
func NewMemory[T any]() Docs[T] {
	return &memoryDocs[T]{docs: make(map[string][]byte)}
}

func (m *memoryDocs[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	m.mu.Lock()
	raw, ok := m.docs[id]
	m.mu.Unlock()

	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return decode[T](raw)
}

func (m *memoryDocs[T]) Create(ctx context.Context, id string, value T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; ok {
		return fmt.Errorf("%w: %s", ErrExists, id)
	}
	m.docs[id] = raw
	return nil
}

func (m *memoryDocs[T]) Set(ctx context.Context, id string, value T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", id, err)
	}

	m.mu.Lock()
	m.docs[id] = raw
	m.mu.Unlock()
	return nil
}

func (m *memoryDocs[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.docs, id)
	m.mu.Unlock()
	return nil
}

func (m *memoryDocs[T]) List(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v, err := decode[T](m.docs[id])
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		out = append(out, v)
	}
	m.mu.Unlock()
	return out, nil
}

func (m *memoryDocs[T]) Mutate(ctx context.Context, id string, fn func(*T) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	value, err := decode[T](raw)
	if err != nil {
		return err
	}

	if err := fn(&value); err != nil {
		return err
	}

	updated, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", id, err)
	}
	m.docs[id] = updated
	return nil
}

func decode[T any](raw []byte) (T, error) {
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, fmt.Errorf("store: decode document: %w", err)
	}
	return value, nil
}
