/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/atomic"

	"github.com/acronis/go-bucketgrid/log"
)

// unit is a part of the service that can be started and stopped.
// Start blocks until the unit is stopped, fatal errors are sent to the channel.
type unit interface {
	Start(fatalError chan<- error)
	Stop(gracefully bool) error
}

// reportFatal sends err unless another fatal error is already pending.
func reportFatal(fatalError chan<- error, err error) {
	select {
	case fatalError <- err:
	default:
	}
}

// workerUnit runs a function in the background until it's stopped.
type workerUnit struct {
	run       func(ctx context.Context)
	ctx       context.Context
	ctxCancel context.CancelFunc
	started   atomic.Bool // also set by Stop, so a stopped unit never runs
	done      chan struct{}
}

func newWorkerUnit(run func(ctx context.Context)) *workerUnit {
	ctx, ctxCancel := context.WithCancel(context.Background())
	return &workerUnit{run: run, ctx: ctx, ctxCancel: ctxCancel, done: make(chan struct{})}
}

func (u *workerUnit) Start(_ chan<- error) {
	if !u.started.CompareAndSwap(false, true) {
		return
	}
	defer close(u.done)
	u.run(u.ctx)
}

func (u *workerUnit) Stop(gracefully bool) error {
	u.ctxCancel()
	if u.started.CompareAndSwap(false, true) {
		close(u.done)
	}
	if gracefully {
		<-u.done
	}
	return nil
}

// httpServerUnit serves HTTP requests.
type httpServerUnit struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          log.FieldLogger

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

func newHTTPServerUnit(cfg *ServerConfig, handler http.Handler, logger log.FieldLogger) *httpServerUnit {
	return &httpServerUnit{
		server: &http.Server{
			Addr:              cfg.Address,
			Handler:           handler,
			ReadTimeout:       cfg.Timeouts.Read,
			ReadHeaderTimeout: cfg.Timeouts.Read,
			WriteTimeout:      cfg.Timeouts.Write,
			IdleTimeout:       cfg.Timeouts.Idle,
		},
		shutdownTimeout: cfg.Timeouts.Shutdown,
		logger:          logger,
		done:            make(chan struct{}),
	}
}

// Addr returns the address the server listens on, or nil if it is not listening yet.
func (u *httpServerUnit) Addr() net.Addr {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.listener == nil {
		return nil
	}
	return u.listener.Addr()
}

func (u *httpServerUnit) Start(fatalError chan<- error) {
	defer close(u.done)

	logger := u.logger.With(
		log.String("address", u.server.Addr),
		log.Duration("write_timeout", u.server.WriteTimeout),
		log.Duration("read_timeout", u.server.ReadTimeout),
		log.Duration("idle_timeout", u.server.IdleTimeout),
		log.Duration("shutdown_timeout", u.shutdownTimeout),
	)
	logger.Info("starting HTTP server...")

	ln, err := net.Listen("tcp", u.server.Addr)
	if err != nil {
		logger.Error("HTTP server error", log.Error(err))
		reportFatal(fatalError, fmt.Errorf("listen %q: %w", u.server.Addr, err))
		return
	}
	u.mu.Lock()
	u.listener = ln
	u.mu.Unlock()

	logger.Info("HTTP server is listening", log.String("listen_address", ln.Addr().String()))
	if err = u.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server error", log.Error(err))
		reportFatal(fatalError, err)
	}
}

func (u *httpServerUnit) Stop(gracefully bool) error {
	if !gracefully {
		u.logger.Info("closing HTTP server...")
		return u.server.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), u.shutdownTimeout)
	defer cancel()

	u.logger.Info("shutting down HTTP server...", log.Duration("timeout", u.shutdownTimeout))
	if err := u.server.Shutdown(ctx); err != nil {
		u.logger.Error("HTTP server shutting down error", log.Error(err))
		return err
	}
	u.logger.Info("HTTP server shut down")
	<-u.done
	return nil
}

// compositeUnit starts all units concurrently and stops them in the reverse order.
type compositeUnit struct {
	units []unit
	wg    sync.WaitGroup
}

func newCompositeUnit(units ...unit) *compositeUnit {
	return &compositeUnit{units: units}
}

func (cu *compositeUnit) Start(fatalError chan<- error) {
	cu.wg.Add(len(cu.units))
	for _, u := range cu.units {
		go func(u unit) {
			defer cu.wg.Done()
			u.Start(fatalError)
		}(u)
	}
	cu.wg.Wait()
}

func (cu *compositeUnit) Stop(gracefully bool) error {
	var errs []error
	for i := len(cu.units) - 1; i >= 0; i-- {
		if err := cu.units[i].Stop(gracefully); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// runService starts the unit and blocks until ctx is done, a shutdown signal is received,
// or the unit reports a fatal error.
func runService(ctx context.Context, logger log.FieldLogger, u unit, signals chan os.Signal) error {
	fatalError := make(chan error, 1)
	go u.Start(fatalError)

	signal.Notify(signals, shutdownSignals...)
	defer signal.Stop(signals)

	select {
	case <-ctx.Done():
		logger.Info("context is canceled, service will be stopped")
	case sig := <-signals:
		logger.Info("service got signal", log.String("signal", sig.String()))
	case err := <-fatalError:
		logger.Error("service fatal error", log.Error(err))
		if stopErr := u.Stop(false); stopErr != nil {
			logger.Error("service stopping error", log.Error(stopErr))
		}
		return fmt.Errorf("fatal error: %w", err)
	}

	if err := u.Stop(true); err != nil {
		return fmt.Errorf("stop service gracefully: %w", err)
	}
	return nil
}
