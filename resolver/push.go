package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/intakehq/threadlink/registry"
)

// TriggerFunc asks the third party to eventually materialize a resource
// referencing the correlation key bound into the closure.
type TriggerFunc func(ctx context.Context) error

// PushCorrelator resolves a resource id by triggering an external action and
// suspending until the inbound callback receiver completes the matching
// waiter, or the timeout elapses.
type PushCorrelator struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// PushOption configures a PushCorrelator.
type PushOption func(p *PushCorrelator)

// WithPushLogger sets the logger.
func WithPushLogger(logger *slog.Logger) PushOption {
	return func(p *PushCorrelator) { p.logger = logger }
}

// NewPushCorrelator creates a push correlator backed by reg.
func NewPushCorrelator(reg *registry.Registry, options ...PushOption) *PushCorrelator {
	ret := &PushCorrelator{registry: reg, logger: slog.Default()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Resolve registers key, invokes trigger, and waits up to timeout for the
// callback. Registration happens before the trigger so a callback that
// outruns the trigger response is never dropped. At most one outcome is
// produced per call and the registry never retains the waiter past it.
func (p *PushCorrelator) Resolve(ctx context.Context, key string, trigger TriggerFunc, timeout time.Duration) (string, error) {
	waiter, err := p.registry.Register(key)
	switch {
	case errors.Is(err, registry.ErrDuplicateKey):
		return "", &Failure{Reason: ReasonDuplicateKey, Err: err}
	case errors.Is(err, registry.ErrClosed):
		return "", &Failure{Reason: ReasonCanceled, Err: err}
	case err != nil:
		return "", &Failure{Reason: ReasonTransportError, Err: err}
	}

	if err := trigger(ctx); err != nil {
		p.registry.Fail(key, err)
		return "", &Failure{Reason: ReasonTriggerFailed, Err: err}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-waiter.Done():
		return p.outcome(waiter)
	case <-timer.C:
		if p.registry.Expire(key) {
			p.logger.Debug("push correlation timed out", "key", key, "timeout", timeout)
			return "", &Failure{Reason: ReasonTimeout}
		}
		// The callback won the race against the timer; return its value.
		<-waiter.Done()
		return p.outcome(waiter)
	case <-ctx.Done():
		if p.registry.Expire(key) {
			return "", &Failure{Reason: ReasonCanceled, Err: ctx.Err()}
		}
		<-waiter.Done()
		return p.outcome(waiter)
	}
}

func (p *PushCorrelator) outcome(waiter *registry.Waiter) (string, error) {
	resourceID, err := waiter.Outcome()
	switch {
	case err == nil:
		return resourceID, nil
	case errors.Is(err, registry.ErrExpired):
		return "", &Failure{Reason: ReasonTimeout, Err: err}
	case errors.Is(err, registry.ErrClosed):
		return "", &Failure{Reason: ReasonCanceled, Err: err}
	default:
		return "", &Failure{Reason: ReasonTriggerFailed, Err: err}
	}
}
