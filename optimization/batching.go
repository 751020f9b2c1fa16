/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package optimization

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/acronis/go-bucketgrid/backend"
	"github.com/acronis/go-bucketgrid/command"
	"github.com/acronis/go-bucketgrid/log"
)

type batching struct {
	opts []Option
}

// Batching returns the optimization that combines requests for the same key.
// While a request for a key is in flight, new requests for this key are queued.
// When it completes, all queued requests are sent as a single command.Multi,
// so the store is accessed once for the whole batch. Results are delivered in the order
// of arrival and are the same as if the requests were executed one after another.
//
// Blocking backends are batched through backend.SyncToAsync and backend.AsyncToSync.
func Batching(opts ...Option) Optimization {
	return batching{opts: opts}
}

func (o batching) Apply(b backend.Backend) backend.Backend {
	return backend.AsyncToSync(o.ApplyAsync(backend.SyncToAsync(b)))
}

func (o batching) ApplyAsync(b backend.AsyncBackend) backend.AsyncBackend {
	return &batchingBackend{delegate: b, opts: makeOptions(o.opts), queues: make(map[string]*keyQueue)}
}

type pendingRequest struct {
	ctx           context.Context
	req           backend.Request
	future        *backend.Future
	stopWatchDone func() bool
}

type keyQueue struct {
	waiting []pendingRequest
}

type batchingBackend struct {
	delegate backend.AsyncBackend
	opts     options

	mu     sync.Mutex
	queues map[string]*keyQueue // presence of a key means that a request for it is in flight
}

func (b *batchingBackend) ExecuteAsync(ctx context.Context, req backend.Request) *backend.Future {
	if err := req.Validate(); err != nil {
		return backend.CompletedFuture(command.Result{}, err)
	}
	b.opts.stats.Requests.Inc()

	b.mu.Lock()
	if q, inFlight := b.queues[req.Key]; inFlight {
		f := backend.NewFuture()
		stop := context.AfterFunc(ctx, func() {
			f.Complete(command.Result{}, ctx.Err())
		})
		q.waiting = append(q.waiting, pendingRequest{ctx: ctx, req: req, future: f, stopWatchDone: stop})
		b.mu.Unlock()
		b.opts.stats.Waits.Inc()
		return f
	}
	b.queues[req.Key] = &keyQueue{}
	b.mu.Unlock()

	f := b.delegate.ExecuteAsync(ctx, req)
	f.OnComplete(func(command.Result, error) {
		b.next(req.Key)
	})
	return f
}

// next sends all requests queued for the key or marks the key as idle if nothing is queued.
func (b *batchingBackend) next(key string) {
	b.mu.Lock()
	q := b.queues[key]
	var batch []pendingRequest
	for _, p := range q.waiting {
		// Requests canceled while waiting are already completed.
		if p.stopWatchDone() {
			batch = append(batch, p)
		}
	}
	q.waiting = nil
	if len(batch) == 0 {
		delete(b.queues, key)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	if len(batch) == 1 {
		p := batch[0]
		b.delegate.ExecuteAsync(p.ctx, p.req).OnComplete(func(res command.Result, err error) {
			p.future.Complete(res, err)
			b.next(key)
		})
		return
	}
	b.executeBatch(key, batch)
}

func (b *batchingBackend) executeBatch(key string, batch []pendingRequest) {
	cmds := make([]command.Command, 0, len(batch))
	for _, p := range batch {
		cmds = append(cmds, p.req.Command)
	}
	b.opts.metrics.ObserveBatchSize(len(batch))
	b.opts.stats.Batches.Inc()
	b.opts.stats.BatchedRequests.Add(int64(len(batch)))
	b.opts.logger.Debug("requests are combined into a batch", log.BucketKey(key), log.Int("size", len(batch)))

	// The batch serves several callers, so it must not be aborted by cancellation of any of them.
	ctx := context.WithoutCancel(batch[0].ctx)
	req := backend.Request{Key: key, Command: command.Multi{Commands: cmds}, Configuration: batch[0].req.Configuration}
	b.delegate.ExecuteAsync(ctx, req).OnComplete(func(res command.Result, err error) {
		if err != nil && errors.Is(err, command.ErrInvalidArgument) {
			// A single invalid command must not fail the others.
			b.opts.logger.Debug("batch is rejected, requests are executed one by one",
				log.BucketKey(key), log.Error(err))
			b.executeOneByOne(key, batch)
			return
		}
		b.complete(batch, res, err)
		b.next(key)
	})
}

func (b *batchingBackend) complete(batch []pendingRequest, res command.Result, err error) {
	if err != nil {
		for _, p := range batch {
			p.future.Complete(command.Result{}, err)
		}
		return
	}
	results, ok := res.Value.([]command.Result)
	if !ok || len(results) != len(batch) {
		err = fmt.Errorf("%w: batch of %d commands returned %T", command.ErrUnexpectedResult, len(batch), res.Value)
		for _, p := range batch {
			p.future.Complete(command.Result{}, err)
		}
		return
	}
	for i, p := range batch {
		p.future.Complete(results[i], nil)
	}
}

func (b *batchingBackend) executeOneByOne(key string, batch []pendingRequest) {
	if len(batch) == 0 {
		b.next(key)
		return
	}
	p := batch[0]
	b.delegate.ExecuteAsync(context.WithoutCancel(p.ctx), p.req).OnComplete(func(res command.Result, err error) {
		p.future.Complete(res, err)
		b.executeOneByOne(key, batch[1:])
	})
}
