/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package keytable

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrResolvePanicked is returned to callers waiting for a value whose resolve function panicked.
var ErrResolvePanicked = errors.New("resolving of the value panicked")

type tableEntry[K comparable, V any] struct {
	key   K
	value V
}

// pendingValue is a value being resolved. done is closed when the other fields are set.
type pendingValue[V any] struct {
	done           chan struct{}
	val            V
	err            error
	callerCanceled bool // resolve failed after the context of its caller had ended
}

// Table keeps values per key. When the table is bounded and full, the least recently used entry is evicted.
type Table[K comparable, V any] struct {
	maxKeys int

	mu      sync.Mutex
	lruList *list.List
	entries map[K]*list.Element // value is a lruList element
	pending map[K]*pendingValue[V]

	metricsCollector MetricsCollector
}

// New creates a new Table. Zero maxKeys means that the table is unbounded.
// Metrics collector may be nil, in this case, metrics will be disabled.
func New[K comparable, V any](maxKeys int, metricsCollector MetricsCollector) (*Table[K, V], error) {
	if maxKeys < 0 {
		return nil, fmt.Errorf("maxKeys must be greater or equal to 0 (unbounded)")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetricsCollector
	}
	return &Table[K, V]{
		maxKeys:          maxKeys,
		lruList:          list.New(),
		entries:          make(map[K]*list.Element),
		pending:          make(map[K]*pendingValue[V]),
		metricsCollector: metricsCollector,
	}, nil
}

// Resolve returns a value by the key. If there is no value, resolve is called with ctx and its result is stored.
// Concurrent calls for the same key share one call of resolve, waiting callers stop waiting when their ctx is done.
// Errors are not stored, so the next call will try to resolve the value again.
// If the shared call failed because the context of its caller ended, a waiting caller
// with a live context calls resolve itself.
// If resolve panics, the panic is propagated to the caller that made the call,
// other callers get ErrResolvePanicked.
func (t *Table[K, V]) Resolve(ctx context.Context, key K, resolve func(ctx context.Context) (V, error)) (V, error) {
	for {
		t.mu.Lock()
		if value, ok := t.get(key); ok {
			t.mu.Unlock()
			return value, nil
		}
		p, ok := t.pending[key]
		if !ok {
			p = &pendingValue[V]{done: make(chan struct{}), err: ErrResolvePanicked}
			t.pending[key] = p
			t.mu.Unlock()
			return t.resolvePending(ctx, key, p, resolve)
		}
		t.mu.Unlock()

		select {
		case <-p.done:
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
		if !p.callerCanceled || ctx.Err() != nil {
			return p.val, p.err
		}
	}
}

func (t *Table[K, V]) resolvePending(
	ctx context.Context, key K, p *pendingValue[V], resolve func(ctx context.Context) (V, error),
) (V, error) {
	defer func() {
		t.mu.Lock()
		delete(t.pending, key)
		if p.err == nil {
			t.add(key, p.val)
		}
		t.mu.Unlock()
		close(p.done)
	}()

	val, err := resolve(ctx)
	if err != nil {
		t.metricsCollector.IncResolveErrors()
		p.callerCanceled = ctx.Err() != nil
	}
	p.val, p.err = val, err
	return val, err
}

// Remove removes a value by the key.
func (t *Table[K, V]) Remove(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, ok := t.entries[key]
	if !ok {
		return false
	}
	t.lruList.Remove(elem)
	delete(t.entries, key)
	t.metricsCollector.SetAmount(len(t.entries))
	return true
}

// Len returns the number of values in the table.
func (t *Table[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table[K, V]) get(key K) (value V, ok bool) {
	elem, hit := t.entries[key]
	if !hit {
		t.metricsCollector.IncMisses()
		return value, false
	}
	t.lruList.MoveToFront(elem)
	t.metricsCollector.IncHits()
	return elem.Value.(*tableEntry[K, V]).value, true
}

func (t *Table[K, V]) add(key K, value V) {
	if elem, ok := t.entries[key]; ok {
		t.lruList.MoveToFront(elem)
		elem.Value.(*tableEntry[K, V]).value = value
		return
	}
	t.entries[key] = t.lruList.PushFront(&tableEntry[K, V]{key: key, value: value})
	if t.maxKeys == 0 || len(t.entries) <= t.maxKeys {
		t.metricsCollector.SetAmount(len(t.entries))
		return
	}
	if elem := t.lruList.Back(); elem != nil {
		t.lruList.Remove(elem)
		delete(t.entries, elem.Value.(*tableEntry[K, V]).key)
		t.metricsCollector.AddEvictions(1)
	}
}
