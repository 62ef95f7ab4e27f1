package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It backs local development and tests when
// no DATABASE_URL is configured. Transactions stage their writes privately
// and apply them on Commit; the operation serializer guarantees a single
// writer, so staged transactions never conflict.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]map[string][]byte)}
}

// Begin opens a transaction over the current committed state.
func (m *Memory) Begin(ctx context.Context) (Tx, error) {
	return &memTx{store: m, staged: make(map[string]map[string][]byte)}, nil
}

// Close releases nothing; it exists to satisfy Store.
func (m *Memory) Close() {}

// memTx stages writes as bucket -> key -> value, with nil marking a delete.
type memTx struct {
	store  *Memory
	staged map[string]map[string][]byte
	done   bool
}

func (t *memTx) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if b, ok := t.staged[bucket]; ok {
		if v, ok := b[key]; ok {
			if v == nil {
				return nil, nil // staged delete
			}
			cp := make([]byte, len(v))
			copy(cp, v)
			return cp, nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	v, ok := t.store.buckets[bucket][key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (t *memTx) Put(ctx context.Context, bucket, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	t.stage(bucket, key, cp)
	return nil
}

func (t *memTx) Delete(ctx context.Context, bucket, key string) error {
	t.stage(bucket, key, nil)
	return nil
}

func (t *memTx) stage(bucket, key string, value []byte) {
	b, ok := t.staged[bucket]
	if !ok {
		b = make(map[string][]byte)
		t.staged[bucket] = b
	}
	b[key] = value
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for bucket, staged := range t.staged {
		b, ok := t.store.buckets[bucket]
		if !ok {
			b = make(map[string][]byte)
			t.store.buckets[bucket] = b
		}
		for key, value := range staged {
			if value == nil {
				delete(b, key)
			} else {
				b[key] = value
			}
		}
	}
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.done = true
	t.staged = nil
	return nil
}

var _ Store = (*Memory)(nil)
