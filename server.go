package threadlink

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/intakehq/threadlink/mailer"
	"github.com/intakehq/threadlink/resolver"
)

// Middleware is a function that takes an http.Handler and returns an http.Handler
type Middleware func(next http.Handler) http.Handler

// ChainMiddlewareHandlers chains multiple middleware handlers together
func ChainMiddlewareHandlers(h http.Handler, mws ...Middleware) http.Handler {
	// apply in reverse so the first middleware is outermost
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// HTTP creates and returns an HTTP server hosting the inbound callback
// receiver, the resolve endpoint and a health check.
func (s *Service) HTTP(_ context.Context, addr string) *http.Server {
	if addr == "" {
		addr = s.options.Addr
	}
	mux := http.NewServeMux()
	mux.Handle(s.options.CallbackURI, s.receiver)
	mux.HandleFunc("/v1/resolve", s.handleResolve)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	handler := ChainMiddlewareHandlers(mux, requestLogMiddleware())
	return &http.Server{
		Addr:    addr,
		Handler: handler,
	}
}

// resolveRequest asks the service to send a support email and resolve the
// conversation thread the helpdesk creates for it.
type resolveRequest struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body,omitempty"`
	// Note, when set, is posted to the resolved thread as an internal
	// annotation.
	Note string `json:"note,omitempty"`
}

type resolveResponse struct {
	ResourceID string `json:"resourceId,omitempty"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

func (s *Service) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var request resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if request.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	if s.mailer == nil {
		http.Error(w, "no mail trigger configured", http.StatusServiceUnavailable)
		return
	}
	resolution := resolver.Request{
		Key:         request.Email,
		SubjectHint: request.Subject,
		Trigger: s.mailer.TriggerFor(mailer.Message{
			To:      request.Email,
			Subject: request.Subject,
			Body:    request.Body,
		}),
	}
	var resourceID string
	var err error
	if request.Note != "" {
		resourceID, err = s.Resolver.ResolveAndAnnotate(r.Context(), resolution, request.Note)
	} else {
		resourceID, err = s.Resolver.Resolve(r.Context(), resolution)
	}
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		reason, _ := resolver.FailureReason(err)
		status := http.StatusBadGateway
		if reason == resolver.ReasonDuplicateKey {
			status = http.StatusConflict
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(&resolveResponse{Status: "failed", Reason: string(reason)})
		return
	}
	_ = json.NewEncoder(w).Encode(&resolveResponse{Status: "resolved", ResourceID: resourceID})
}

func requestLogMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			next.ServeHTTP(w, r)
			slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(started))
		})
	}
}
