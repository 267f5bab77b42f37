package resolver

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Candidate is one resource returned by the listing endpoint. Candidates are
// ephemeral; they live for the duration of a single attempt.
type Candidate struct {
	ID           string
	Subject      string
	LastActiveAt time.Time
}

// Lister queries the third-party listing endpoint for resources active after
// a boundary timestamp, bounded to limit entries.
type Lister interface {
	ListCandidates(ctx context.Context, after time.Time, limit int) ([]Candidate, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func(ctx context.Context, after time.Time, limit int) ([]Candidate, error)

func (f ListerFunc) ListCandidates(ctx context.Context, after time.Time, limit int) ([]Candidate, error) {
	return f(ctx, after, limit)
}

// Query carries the inputs of one poll resolution.
type Query struct {
	// TriggerTime anchors the lookback window; candidates active before
	// TriggerTime-lookback are ignored.
	TriggerTime time.Time
	// SubjectHint filters candidates by case-insensitive substring match on
	// the subject. Hints are best-effort: zero matches fall back to the
	// unfiltered set rather than failing outright.
	SubjectHint string
}

// PollResolver resolves a resource id by repeatedly querying a
// recency-ordered listing endpoint. The endpoint is eventually consistent
// relative to the triggering action, so a bounded number of attempts on a
// fixed interval balances latency against picking an unrelated, older
// resource.
type PollResolver struct {
	lister      Lister
	maxAttempts int
	interval    time.Duration
	lookback    time.Duration
	pageSize    int
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// PollOption configures a PollResolver.
type PollOption func(p *PollResolver)

// WithMaxAttempts bounds the number of listing queries.
func WithMaxAttempts(n int) PollOption {
	return func(p *PollResolver) { p.maxAttempts = n }
}

// WithInterval sets the sleep between attempts.
func WithInterval(d time.Duration) PollOption {
	return func(p *PollResolver) { p.interval = d }
}

// WithLookbackWindow sets how far before the trigger time candidates remain
// eligible.
func WithLookbackWindow(d time.Duration) PollOption {
	return func(p *PollResolver) { p.lookback = d }
}

// WithPageSize bounds each listing query.
func WithPageSize(n int) PollOption {
	return func(p *PollResolver) { p.pageSize = n }
}

// WithRateLimiter throttles listing queries; helpdesk APIs are rate limited.
func WithRateLimiter(limiter *rate.Limiter) PollOption {
	return func(p *PollResolver) { p.limiter = limiter }
}

// WithPollLogger sets the logger.
func WithPollLogger(logger *slog.Logger) PollOption {
	return func(p *PollResolver) { p.logger = logger }
}

// NewPollResolver creates a poll resolver over lister.
func NewPollResolver(lister Lister, options ...PollOption) *PollResolver {
	ret := &PollResolver{
		lister:      lister,
		maxAttempts: 5,
		interval:    3 * time.Second,
		lookback:    10 * time.Minute,
		pageSize:    25,
		logger:      slog.Default(),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Resolve runs up to maxAttempts listing queries and returns the selected
// candidate's id. N attempts mean N queries and N-1 inter-attempt sleeps.
// A transport error consumes its attempt and is retried only while attempts
// remain; it never adds an extra one. With no match after all attempts the
// failure is Exhausted, or TransportError when the final attempt errored.
func (p *PollResolver) Resolve(ctx context.Context, query Query) (string, error) {
	triggerTime := query.TriggerTime
	if triggerTime.IsZero() {
		triggerTime = time.Now()
	}
	boundary := triggerTime.Add(-p.lookback)

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.interval); err != nil {
				return "", &Failure{Reason: ReasonCanceled, Err: err}
			}
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return "", &Failure{Reason: ReasonCanceled, Err: err}
			}
		}
		candidates, err := p.lister.ListCandidates(ctx, boundary, p.pageSize)
		if err != nil {
			if ctx.Err() != nil {
				return "", &Failure{Reason: ReasonCanceled, Err: ctx.Err()}
			}
			lastErr = err
			p.logger.Warn("candidate listing failed", "attempt", attempt, "error", err)
			continue
		}
		lastErr = nil
		if selected, ok := selectCandidate(candidates, query.SubjectHint); ok {
			p.logger.Debug("candidate selected", "attempt", attempt, "resourceID", selected.ID)
			return selected.ID, nil
		}
	}
	if lastErr != nil {
		return "", &Failure{Reason: ReasonTransportError, Err: lastErr}
	}
	return "", &Failure{Reason: ReasonExhausted}
}

// selectCandidate applies the subject-hint filter and picks the most
// recently active candidate. The heuristic is deliberately approximate: the
// listing endpoint offers no exact-match correlation handle, and two
// interactions sharing a similar subject within the window can be confused.
func selectCandidate(candidates []Candidate, subjectHint string) (Candidate, bool) {
	pool := candidates
	if subjectHint != "" {
		hint := strings.ToLower(subjectHint)
		var matched []Candidate
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c.Subject), hint) {
				matched = append(matched, c)
			}
		}
		if len(matched) > 0 {
			pool = matched
		}
	}
	var best Candidate
	found := false
	for _, c := range pool {
		if c.ID == "" {
			continue
		}
		if !found || c.LastActiveAt.After(best.LastActiveAt) {
			best = c
			found = true
		}
	}
	return best, found
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
