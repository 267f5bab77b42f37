// Package callback implements the inbound callback receiver: a pure,
// idempotent sink for third-party delivery notifications carrying a
// correlation key and the id of the resource the third party created.
package callback

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// Completer completes the waiter registered for key, reporting whether an
// active waiter was found. registry.Registry satisfies it.
type Completer interface {
	Complete(key, resourceID string) bool
}

// Delivery is the callback payload.
type Delivery struct {
	CorrelationKey string `json:"correlationKey"`
	ResourceID     string `json:"resourceId"`
	// DeliveryID identifies one delivery attempt so redeliveries can be
	// suppressed. Optional.
	DeliveryID string `json:"deliveryId,omitempty"`
}

// SignatureHeader carries the optional HS256 token binding a delivery to its
// payload.
const SignatureHeader = "X-Threadlink-Signature"

// Receiver accepts third-party callbacks over HTTP and completes matching
// waiters. It responds success whether or not a waiter matched: duplicate
// and stale deliveries are normal and the third party must not retry them.
// The receiver never retries and never blocks the third party.
type Receiver struct {
	completer Completer
	dedup     DedupStore
	secret    []byte
	logger    *slog.Logger
}

// ReceiverOption configures a Receiver.
type ReceiverOption func(r *Receiver)

// WithDedupStore suppresses redelivered callbacks by delivery id.
func WithDedupStore(store DedupStore) ReceiverOption {
	return func(r *Receiver) { r.dedup = store }
}

// WithSigningSecret enables HS256 verification of the signature header.
func WithSigningSecret(secret []byte) ReceiverOption {
	return func(r *Receiver) { r.secret = secret }
}

// WithReceiverLogger sets the logger.
func WithReceiverLogger(logger *slog.Logger) ReceiverOption {
	return func(r *Receiver) { r.logger = logger }
}

// NewReceiver creates a receiver completing waiters through completer.
func NewReceiver(completer Completer, options ...ReceiverOption) *Receiver {
	ret := &Receiver{completer: completer, logger: slog.Default()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// ServeHTTP handles one callback delivery.
func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var delivery Delivery
	if err := json.NewDecoder(req.Body).Decode(&delivery); err != nil {
		http.Error(w, "invalid callback payload", http.StatusBadRequest)
		return
	}
	if delivery.CorrelationKey == "" || delivery.ResourceID == "" {
		http.Error(w, "missing correlationKey or resourceId", http.StatusBadRequest)
		return
	}
	if len(r.secret) > 0 {
		if err := r.verify(req.Header.Get(SignatureHeader), &delivery); err != nil {
			r.logger.Warn("callback signature rejected", "error", err)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}
	if r.dedup != nil && delivery.DeliveryID != "" {
		first, err := r.dedup.Mark(req.Context(), delivery.DeliveryID)
		if err != nil {
			// Dedup is best effort; a store outage must not drop callbacks.
			r.logger.Warn("dedup store unavailable", "error", err)
		} else if !first {
			r.respond(w, false)
			return
		}
	}
	matched := r.completer.Complete(delivery.CorrelationKey, delivery.ResourceID)
	if matched {
		r.logger.Info("callback completed waiter", "key", delivery.CorrelationKey, "resourceID", delivery.ResourceID)
	}
	r.respond(w, matched)
}

func (r *Receiver) respond(w http.ResponseWriter, matched bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "matched": matched})
}

// verify checks that token is a valid HS256 JWT whose claims bind the
// delivery's key and resource id.
func (r *Receiver) verify(token string, delivery *Delivery) error {
	if token == "" {
		return errors.New("missing signature header")
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return r.secret, nil
	})
	if err != nil {
		return err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("unexpected claims type")
	}
	if claims["key"] != delivery.CorrelationKey || claims["resource"] != delivery.ResourceID {
		return errors.New("signature does not match payload")
	}
	return nil
}
