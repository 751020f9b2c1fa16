/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package optimization

import (
	"context"
	"sync"

	"github.com/acronis/go-bucketgrid/backend"
	"github.com/acronis/go-bucketgrid/command"
)

type serialized struct {
	opts []Option
}

// Serialized returns the optimization that executes requests for the same key one by one within the process.
// Blocking backends get a per-key mutex, non-blocking ones get a per-key FIFO queue.
// Requests for different keys are not affected.
func Serialized(opts ...Option) Optimization {
	return serialized{opts: opts}
}

func (s serialized) Apply(b backend.Backend) backend.Backend {
	return &serializedBackend{delegate: b, locks: newKeyLocks(), opts: makeOptions(s.opts)}
}

func (s serialized) ApplyAsync(b backend.AsyncBackend) backend.AsyncBackend {
	return &serializedAsyncBackend{delegate: b, tails: make(map[string]*backend.Future), opts: makeOptions(s.opts)}
}

type serializedBackend struct {
	delegate backend.Backend
	locks    *keyLocks
	opts     options
}

func (b *serializedBackend) Execute(ctx context.Context, req backend.Request) (command.Result, error) {
	b.opts.stats.Requests.Inc()
	unlock, waited, err := b.locks.lock(ctx, req.Key)
	if waited {
		b.opts.stats.Waits.Inc()
	}
	if err != nil {
		return command.Result{}, err
	}
	defer unlock()
	return b.delegate.Execute(ctx, req)
}

type serializedAsyncBackend struct {
	delegate backend.AsyncBackend
	opts     options

	mu    sync.Mutex
	tails map[string]*backend.Future
}

func (b *serializedAsyncBackend) ExecuteAsync(ctx context.Context, req backend.Request) *backend.Future {
	b.opts.stats.Requests.Inc()
	f := backend.NewFuture()
	// turn is completed when the request leaves the queue, f may be completed earlier by cancellation.
	turn := backend.NewFuture()

	b.mu.Lock()
	prev := b.tails[req.Key]
	b.tails[req.Key] = turn
	b.mu.Unlock()

	finish := func(res command.Result, err error) {
		b.mu.Lock()
		if b.tails[req.Key] == turn {
			delete(b.tails, req.Key)
		}
		b.mu.Unlock()
		f.Complete(res, err)
		turn.Complete(command.Result{}, nil)
	}
	start := func() {
		if err := ctx.Err(); err != nil {
			finish(command.Result{}, err)
			return
		}
		b.delegate.ExecuteAsync(ctx, req).OnComplete(finish)
	}
	if prev == nil {
		start()
		return f
	}
	b.opts.stats.Waits.Inc()
	stopWatchDone := context.AfterFunc(ctx, func() {
		f.Complete(command.Result{}, ctx.Err())
	})
	prev.OnComplete(func(command.Result, error) {
		stopWatchDone()
		start()
	})
	return f
}

// keyLocks is a set of per-key mutexes which may be acquired with respect to a context.
// A mutex exists only while somebody holds or waits for it.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (l *keyLocks) lock(ctx context.Context, key string) (unlock func(), waited bool, err error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.sem <- struct{}{}:
		return func() { l.unlock(key, kl) }, false, nil
	default:
	}

	select {
	case kl.sem <- struct{}{}:
		return func() { l.unlock(key, kl) }, true, nil
	case <-ctx.Done():
		l.release(key, kl)
		return nil, true, ctx.Err()
	}
}

func (l *keyLocks) unlock(key string, kl *keyLock) {
	<-kl.sem
	l.release(key, kl)
}

func (l *keyLocks) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *keyLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
