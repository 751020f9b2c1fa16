/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package optimization

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-bucketgrid/backend"
	"github.com/acronis/go-bucketgrid/command"
)

func TestSerialized_NoOverConsumption(t *testing.T) {
	st := newCountingStore()
	stats := &Stats{}
	b := Serialized(WithStats(stats)).Apply(backend.NewCASBackend(st, newBackendOptions()))

	const workers = 30
	var consumed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := b.Execute(context.Background(), newRequest(testKey, command.TryConsume{Tokens: 1}))
			assert.NoError(t, err)
			if res.Value == true {
				consumed.Inc()
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 10, consumed.Load())
	require.EqualValues(t, workers, stats.Requests.Load())
	// Requests are not concurrent within the process, so nobody loses compare-and-swap.
	require.Equal(t, st.Swaps(), st.SwapsWon())
	require.Zero(t, b.(*serializedBackend).locks.len())
}

func TestSerialized_DifferentKeysAreIndependent(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32
	delegate := backend.ExecuteFunc(func(ctx context.Context, req backend.Request) (command.Result, error) {
		started.Inc()
		<-release
		return command.Result{Value: true}, nil
	})
	b := Serialized().Apply(delegate)

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := b.Execute(context.Background(), newRequest(key, command.GetAvailableTokens{}))
			assert.NoError(t, err)
		}(key)
	}
	require.Eventually(t, func() bool { return started.Load() == 3 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
}

func TestSerialized_ContextCanceledWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	delegate := backend.ExecuteFunc(func(ctx context.Context, req backend.Request) (command.Result, error) {
		entered <- struct{}{}
		<-release
		return command.Result{Value: true}, nil
	})
	stats := &Stats{}
	b := Serialized(WithStats(stats)).Apply(delegate)

	done := make(chan error, 1)
	go func() {
		_, err := b.Execute(context.Background(), newRequest(testKey, command.GetAvailableTokens{}))
		done <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.Execute(ctx, newRequest(testKey, command.GetAvailableTokens{}))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.EqualValues(t, 1, stats.Waits.Load())

	close(release)
	require.NoError(t, <-done)
	require.Zero(t, b.(*serializedBackend).locks.len())
}

func TestSerialized_AsyncContextCanceledWhileQueued(t *testing.T) {
	st := newCountingStore()
	gated := newGatedBackend(backend.NewAsyncCASBackend(st, newBackendOptions()))
	b := Serialized().ApplyAsync(gated)

	first := b.ExecuteAsync(context.Background(), newRequest(testKey, command.TryConsume{Tokens: 1}))
	ctx, cancel := context.WithCancel(context.Background())
	queued := b.ExecuteAsync(ctx, newRequest(testKey, command.TryConsume{Tokens: 1}))
	last := b.ExecuteAsync(context.Background(), newRequest(testKey, command.TryConsume{Tokens: 1}))

	cancel()
	select {
	case <-queued.Done():
	case <-time.After(time.Second):
		t.Fatal("queued request must be completed right after its context is canceled")
	}
	_, err := queued.Result()
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, isDone(first), "canceled request must not release the queue")
	require.False(t, isDone(last))
	require.EqualValues(t, 1, gated.calls.Load())

	gated.open()
	for _, f := range []*backend.Future{first, last} {
		res, resErr := f.Wait(context.Background())
		require.NoError(t, resErr)
		require.Equal(t, true, res.Value)
	}
	require.EqualValues(t, 2, gated.calls.Load(), "canceled request must not reach the backend")

	sb := b.(*serializedAsyncBackend)
	sb.mu.Lock()
	defer sb.mu.Unlock()
	require.Empty(t, sb.tails)
}

func isDone(f *backend.Future) bool {
	select {
	case <-f.Done():
		return true
	default:
		return false
	}
}

func TestSerialized_Async(t *testing.T) {
	st := newCountingStore()
	gated := newGatedBackend(backend.NewAsyncCASBackend(st, newBackendOptions()))
	stats := &Stats{}
	b := Serialized(WithStats(stats)).ApplyAsync(gated)

	futures := make([]*backend.Future, 0, 12)
	for i := 0; i < 12; i++ {
		futures = append(futures, b.ExecuteAsync(context.Background(), newRequest(testKey, command.TryConsume{Tokens: 1})))
	}
	// Nothing but the first request reaches the backend until it completes.
	require.EqualValues(t, 1, gated.calls.Load())
	require.EqualValues(t, 11, stats.Waits.Load())
	gated.open()

	var results []interface{}
	for _, f := range futures {
		res, err := f.Result()
		require.NoError(t, err)
		results = append(results, res.Value)
	}
	require.Equal(t, []interface{}{true, true, true, true, true, true, true, true, true, true, false, false}, results)
	require.Equal(t, st.Swaps(), st.SwapsWon())

	sb := b.(*serializedAsyncBackend)
	sb.mu.Lock()
	defer sb.mu.Unlock()
	require.Empty(t, sb.tails)
}
