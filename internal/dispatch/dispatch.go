// Package dispatch runs client actions through a chain of interceptors.
//
// Every state-changing or fetching operation of the portal is dispatched as a
// named action; interceptors see the action before and after it runs.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPanic is returned when an action panicked and Recover caught it.
var ErrPanic = errors.New("internal error")

// Handler is the body of an action.
type Handler func(ctx context.Context) error

// Interceptor wraps a handler. It must call next to let the action proceed.
type Interceptor func(ctx context.Context, action string, next Handler) error

// Dispatcher holds the interceptor chain. Interceptors run in registration order.
type Dispatcher struct {
	mu    sync.RWMutex
	chain []Interceptor
}

// New returns a dispatcher with the given interceptors.
func New(ics ...Interceptor) *Dispatcher {
	return &Dispatcher{chain: append([]Interceptor(nil), ics...)}
}

// Use appends an interceptor to the end of the chain.
func (d *Dispatcher) Use(ic Interceptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chain = append(d.chain, ic)
}

// Dispatch runs h for action through the chain.
func (d *Dispatcher) Dispatch(ctx context.Context, action string, h Handler) error {
	d.mu.RLock()
	chain := append([]Interceptor(nil), d.chain...)
	d.mu.RUnlock()

	next := h
	for i := len(chain) - 1; i >= 0; i-- {
		ic, inner := chain[i], next
		next = func(ctx context.Context) error { return ic(ctx, action, inner) }
	}
	return next(ctx)
}

// Logging returns an interceptor for structured action logging.
func Logging(log *zap.Logger) Interceptor {
	return func(ctx context.Context, action string, next Handler) error {
		start := time.Now()
		err := next(ctx)
		if err != nil {
			log.Warn("action",
				zap.String("action", action),
				zap.Duration("dur", time.Since(start)),
				zap.Error(err),
			)
			return err
		}
		log.Debug("action",
			zap.String("action", action),
			zap.Duration("dur", time.Since(start)),
		)
		return nil
	}
}

// Recover returns an interceptor that turns panics into ErrPanic.
func Recover(log *zap.Logger) Interceptor {
	return func(ctx context.Context, action string, next Handler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("action", action),
				)
				err = fmt.Errorf("%s: %w", action, ErrPanic)
			}
		}()
		return next(ctx)
	}
}
