package registry

import (
	"time"
)

// Waiter represents one outstanding push-correlation request. It is created
// by Register and settled exactly once, either with a resource id or with a
// failure. Callers block on Done and read the result with Outcome.
type Waiter struct {
	id        string
	key       string
	createdAt time.Time
	done      chan struct{}

	// resourceID and err are written once, before done is closed, under the
	// owning registry's lock.
	resourceID string
	err        error
}

// ID returns the waiter's unique id, used for tracing one registration
// across log lines when the same key is reused over time.
func (w *Waiter) ID() string { return w.id }

// Key returns the correlation key the waiter was registered under.
func (w *Waiter) Key() string { return w.key }

// CreatedAt returns the registration time.
func (w *Waiter) CreatedAt() time.Time { return w.createdAt }

// Done returns a channel closed when the waiter reaches a terminal state.
func (w *Waiter) Done() <-chan struct{} { return w.done }

// Outcome returns the settled result. It is valid only after Done is closed.
func (w *Waiter) Outcome() (string, error) { return w.resourceID, w.err }

func (w *Waiter) settle(resourceID string, err error) {
	w.resourceID = resourceID
	w.err = err
	close(w.done)
}
