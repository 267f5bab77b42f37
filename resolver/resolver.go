package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Strategy selects how a resource id is recovered.
type Strategy string

const (
	// StrategyPush resolves via the inbound callback receiver.
	StrategyPush Strategy = "push"
	// StrategyPoll resolves via the listing endpoint.
	StrategyPoll Strategy = "poll"
)

// Annotator posts the follow-up annotation (an internal note) to a resolved
// resource. It is consumed only after resolution succeeds.
type Annotator interface {
	PostNote(ctx context.Context, resourceID, text string) error
}

// ErrMisconfigured indicates the service lacks the strategy or collaborator
// required by the call.
var ErrMisconfigured = errors.New("resolver: misconfigured service (missing strategy, correlator or annotator)")

// Request carries the inputs of one resolution.
type Request struct {
	// Key is the correlation key, typically the customer email address.
	Key string
	// Trigger performs the external action that causes the third party to
	// eventually create the resource. Required for push; for poll it runs
	// once before the first listing query when set.
	Trigger TriggerFunc
	// SubjectHint disambiguates poll candidates.
	SubjectHint string
	// Timeout overrides the service default for push resolution.
	Timeout time.Duration
}

// Service is the resolution façade: the single entry point used by the rest
// of the system. It dispatches to the configured strategy and surfaces every
// internal outcome as one *Failure.
type Service struct {
	strategy  Strategy
	push      *PushCorrelator
	poll      *PollResolver
	annotator Annotator
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(s *Service)

// WithStrategy selects the resolution strategy.
func WithStrategy(strategy Strategy) ServiceOption {
	return func(s *Service) { s.strategy = strategy }
}

// WithPushCorrelator wires the push strategy.
func WithPushCorrelator(push *PushCorrelator) ServiceOption {
	return func(s *Service) { s.push = push }
}

// WithPollResolver wires the poll strategy.
func WithPollResolver(poll *PollResolver) ServiceOption {
	return func(s *Service) { s.poll = poll }
}

// WithAnnotator wires the follow-up annotation collaborator.
func WithAnnotator(annotator Annotator) ServiceOption {
	return func(s *Service) { s.annotator = annotator }
}

// WithTimeout sets the default push timeout.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates the resolution façade.
func NewService(options ...ServiceOption) (*Service, error) {
	ret := &Service{
		strategy: StrategyPush,
		timeout:  30 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range options {
		opt(ret)
	}
	switch ret.strategy {
	case StrategyPush:
		if ret.push == nil {
			return nil, ErrMisconfigured
		}
	case StrategyPoll:
		if ret.poll == nil {
			return nil, ErrMisconfigured
		}
	default:
		return nil, fmt.Errorf("resolver: unknown strategy %q", ret.strategy)
	}
	return ret, nil
}

// Resolve recovers the id of the externally created resource for req, or
// returns a terminal *Failure.
func (s *Service) Resolve(ctx context.Context, req Request) (string, error) {
	switch s.strategy {
	case StrategyPush:
		if req.Key == "" || req.Trigger == nil {
			return "", &Failure{Reason: ReasonTriggerFailed, Err: errors.New("push resolution requires a key and a trigger")}
		}
		timeout := req.Timeout
		if timeout <= 0 {
			timeout = s.timeout
		}
		return s.push.Resolve(ctx, req.Key, req.Trigger, timeout)
	case StrategyPoll:
		triggerTime := s.now()
		if req.Trigger != nil {
			if err := req.Trigger(ctx); err != nil {
				return "", &Failure{Reason: ReasonTriggerFailed, Err: err}
			}
		}
		return s.poll.Resolve(ctx, Query{TriggerTime: triggerTime, SubjectHint: req.SubjectHint})
	default:
		return "", &Failure{Reason: ReasonTransportError, Err: ErrMisconfigured}
	}
}

// ResolveAndAnnotate resolves req and posts note to the resolved resource.
// The annotation is attempted only when a resource id was actually resolved.
func (s *Service) ResolveAndAnnotate(ctx context.Context, req Request, note string) (string, error) {
	resourceID, err := s.Resolve(ctx, req)
	if err != nil {
		return "", err
	}
	if s.annotator == nil {
		return "", ErrMisconfigured
	}
	if err := s.annotator.PostNote(ctx, resourceID, note); err != nil {
		return resourceID, &Failure{Reason: ReasonTransportError, Err: err}
	}
	s.logger.Info("resolved and annotated", "resourceID", resourceID, "strategy", s.strategy)
	return resourceID, nil
}
