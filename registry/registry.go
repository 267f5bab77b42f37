package registry

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateKey indicates an active waiter already exists for the key.
	// A second registration is rejected, never merged or replaced; the key
	// frees up once the first waiter completes or expires.
	ErrDuplicateKey = errors.New("registry: active waiter already exists for key")

	// ErrExpired settles a waiter whose timeout path won the race.
	ErrExpired = errors.New("registry: waiter expired")

	// ErrClosed settles waiters released by Close and rejects registrations
	// after shutdown.
	ErrClosed = errors.New("registry: closed")
)

// Registry is a concurrency-safe table of pending waiters keyed by
// correlation key. At most one active waiter exists per key at any instant.
// A single registry-wide mutex is sufficient at this scale.
type Registry struct {
	mu      sync.Mutex
	waiters map[string]*Waiter
	closed  bool
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Registry.
type Option func(r *Registry)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates an empty registry.
func New(options ...Option) *Registry {
	ret := &Registry{
		waiters: make(map[string]*Waiter),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Register creates a waiter for key. It fails with ErrDuplicateKey while an
// active waiter exists for the same key and with ErrClosed after Close.
func (r *Registry) Register(key string) (*Waiter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if _, ok := r.waiters[key]; ok {
		return nil, ErrDuplicateKey
	}
	waiter := &Waiter{id: uuid.NewString(), key: key, createdAt: r.now(), done: make(chan struct{})}
	r.waiters[key] = waiter
	r.logger.Debug("waiter registered", "id", waiter.id, "key", key)
	return waiter, nil
}

// Complete settles the waiter registered for key with resourceID and removes
// it. It returns false when no active waiter exists (stale or unrelated
// callbacks are the expected steady state, not an error) or when resourceID
// is empty.
func (r *Registry) Complete(key, resourceID string) bool {
	if resourceID == "" {
		return false
	}
	return r.remove(key, resourceID, nil)
}

// Expire fails the waiter registered for key with ErrExpired and removes it.
// It returns false when the waiter has already been completed; the
// complete/expire race is resolved in favor of whichever call arrives first.
func (r *Registry) Expire(key string) bool {
	return r.remove(key, "", ErrExpired)
}

// Fail settles the waiter registered for key with err and removes it. Used
// by the trigger path when the initiating call never went out.
func (r *Registry) Fail(key string, err error) bool {
	if err == nil {
		err = ErrExpired
	}
	return r.remove(key, "", err)
}

// remove is the single atomic check-and-remove shared by every terminal
// transition.
func (r *Registry) remove(key, resourceID string, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	waiter, ok := r.waiters[key]
	if !ok {
		return false
	}
	delete(r.waiters, key)
	waiter.settle(resourceID, err)
	return true
}

// Len returns the number of active waiters.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

// Close releases every active waiter with ErrClosed and rejects further
// registrations. Pending callers unblock instead of leaking on shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	released := len(r.waiters)
	for key, waiter := range r.waiters {
		delete(r.waiters, key)
		waiter.settle("", ErrClosed)
	}
	if released > 0 {
		r.logger.Debug("registry closed with active waiters", "released", released)
	}
}
