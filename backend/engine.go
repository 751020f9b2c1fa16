/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acronis/go-bucketgrid/bucket"
	"github.com/acronis/go-bucketgrid/command"
	"github.com/acronis/go-bucketgrid/log"
	"github.com/acronis/go-bucketgrid/store"
)

// engine implements a single optimistic attempt shared by sync and async backends:
// read the state, execute the command locally, write the new state with compare-and-swap.
type engine struct {
	store    store.Store
	expiring store.ExpiringStore
	opts     Options
}

func newEngine(s store.Store, opts Options) engine {
	e := engine{store: s, opts: opts.withDefaults()}
	e.expiring, _ = s.(store.ExpiringStore)
	return e
}

// attempt returns errCASConflict if the state was changed concurrently and the attempt should be repeated.
func (e *engine) attempt(ctx context.Context, req Request) (command.Result, error) {
	e.opts.Metrics.IncAttempts()
	now := e.opts.TimeMeter.CurrentTimeNanos()

	blob, found, err := e.store.Get(ctx, req.Key)
	if err != nil {
		return command.Result{}, e.storeError(ctx, StoreOpGet, req.Key, err)
	}

	ent := &entry{onClockRegressed: func(regressionErr error) error {
		return e.handleClockRegression(req.Key, regressionErr)
	}}
	if found {
		var gs bucket.GridState
		if err = gs.UnmarshalBinary(blob); err != nil {
			e.opts.Logger.Error("failed to decode bucket state", log.BucketKey(req.Key), log.Error(err))
			return command.Result{}, fmt.Errorf("%w: decode state of key %q: %w", ErrSerialization, req.Key, err)
		}
		ent.state = &gs
	} else {
		cfg, cfgErr := e.configuration(ctx, req)
		if cfgErr != nil {
			return command.Result{}, cfgErr
		}
		gs := bucket.NewGridState(cfg, now)
		ent.state = &gs
		blob = nil
	}

	res, err := req.Command.Execute(ent, now)
	if err != nil {
		return command.Result{}, err
	}
	// A new bucket is persisted even if the command is read-only.
	if found && !res.StateModified {
		return res, nil
	}

	if err = ctx.Err(); err != nil {
		return command.Result{}, err
	}

	newBlob, err := ent.state.MarshalBinary()
	if err != nil {
		return command.Result{}, fmt.Errorf("%w: encode state of key %q: %w", ErrSerialization, req.Key, err)
	}

	var swapped bool
	if ttl := e.ttl(ent, now); ttl > 0 {
		swapped, err = e.expiring.CompareAndSwapWithTTL(ctx, req.Key, blob, newBlob, ttl)
	} else {
		swapped, err = e.store.CompareAndSwap(ctx, req.Key, blob, newBlob)
	}
	if err != nil {
		return command.Result{}, e.storeError(ctx, StoreOpCompareAndSwap, req.Key, err)
	}
	if !swapped {
		e.opts.Metrics.IncConflicts()
		return command.Result{}, errCASConflict
	}
	return res, nil
}

func (e *engine) configuration(ctx context.Context, req Request) (bucket.Configuration, error) {
	cfg, err := req.Configuration(ctx)
	if err != nil {
		return bucket.Configuration{}, &ConfigurationError{Key: req.Key, Err: err}
	}
	if err = cfg.Validate(); err != nil {
		return bucket.Configuration{}, &ConfigurationError{Key: req.Key, Err: err}
	}
	return cfg, nil
}

func (e *engine) ttl(ent *entry, now int64) time.Duration {
	if e.expiring == nil {
		return 0
	}
	if ent.ttl > 0 {
		return ent.ttl
	}
	if e.opts.Expiration == nil {
		return 0
	}
	return e.opts.Expiration.TTL(*ent.state, now)
}

func (e *engine) storeError(ctx context.Context, op, key string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	e.opts.Metrics.IncStoreErrors(op)
	e.opts.Logger.Error("store call failed", log.BucketKey(key), log.String("op", op), log.Error(err))
	return &StoreError{Op: op, Key: key, Err: err}
}

func (e *engine) handleClockRegression(key string, err error) error {
	e.opts.Metrics.IncClockRegressions()
	if e.opts.ClockRegressionPolicy == ClockRegressionFail {
		e.opts.Logger.Warn("clock regression detected, command is rejected", log.BucketKey(key), log.Error(err))
		return err
	}
	e.opts.Logger.Warn("clock regression detected, refill is skipped", log.BucketKey(key), log.Error(err))
	return nil
}

func (e *engine) logRetry(key string, attempt int, delay time.Duration) {
	e.opts.Logger.Debug("bucket state was changed concurrently, retrying",
		log.BucketKey(key), log.Int("attempt", attempt), log.Duration("delay", delay))
}

func (e *engine) finalError(key string, attempts int, err error) error {
	if errors.Is(err, errCASConflict) {
		e.opts.Logger.Warn("giving up after compare-and-swap conflicts",
			log.BucketKey(key), log.Int("attempts", attempts))
		return fmt.Errorf("%w: key %q, %d attempt(s)", ErrCASRetriesExhausted, key, attempts)
	}
	return err
}

func isCASConflict(err error) bool {
	return errors.Is(err, errCASConflict)
}
