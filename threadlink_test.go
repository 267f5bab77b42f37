package threadlink

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intakehq/threadlink/mailer"
)

func TestOptions_InitDefaults(t *testing.T) {
	options := &Options{}
	options.Init()
	assert.Equal(t, "push", options.Strategy)
	assert.Equal(t, "/callbacks/helpdesk", options.CallbackURI)
	assert.Equal(t, 30000, options.TimeoutMs)
	assert.Equal(t, 5, options.MaxAttempts)
	assert.Equal(t, 3000, options.IntervalMs)
	assert.Equal(t, 25, options.PageSize)
}

func TestNew_RequiresHelpdeskURL(t *testing.T) {
	_, err := New(context.Background(), &Options{})
	require.Error(t, err)
}

func TestServiceHTTP_CallbackRoute(t *testing.T) {
	service, err := New(context.Background(), &Options{
		Helpdesk: HelpdeskOptions{BaseURL: "http://helpdesk.local"},
	})
	require.NoError(t, err)
	defer service.Close()

	waiter, err := service.Registry.Register("customer@example.com")
	require.NoError(t, err)

	server := service.HTTP(context.Background(), "")
	payload := []byte(`{"correlationKey":"customer@example.com","resourceId":"thread-5","deliveryId":"d-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/callbacks/helpdesk", bytes.NewReader(payload))
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	<-waiter.Done()
	resourceID, err := waiter.Outcome()
	require.NoError(t, err)
	assert.Equal(t, "thread-5", resourceID)
}

func TestServiceHTTP_Healthz(t *testing.T) {
	service, err := New(context.Background(), &Options{
		Helpdesk: HelpdeskOptions{BaseURL: "http://helpdesk.local"},
	})
	require.NoError(t, err)
	defer service.Close()

	server := service.HTTP(context.Background(), "")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestServiceHTTP_ResolveWithoutMailer(t *testing.T) {
	service, err := New(context.Background(), &Options{
		Helpdesk: HelpdeskOptions{BaseURL: "http://helpdesk.local"},
	})
	require.NoError(t, err)
	defer service.Close()

	server := service.HTTP(context.Background(), "")
	req := httptest.NewRequest(http.MethodPost, "/v1/resolve", bytes.NewReader([]byte(`{"email":"customer@example.com"}`)))
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestServiceHTTP_ResolveEndToEndPoll(t *testing.T) {
	var notePosted bool
	helpdeskServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/conversations" && r.Method == http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"conversations":[
				{"id":"A","subject":"Billing issue","lastActiveAt":"2026-08-23T10:01:40Z"},
				{"id":"B","subject":"Billing issue","lastActiveAt":"2026-08-23T10:03:20Z"},
				{"id":"C","subject":"Other","lastActiveAt":"2026-08-23T10:05:00Z"}
			]}`))
		case r.URL.Path == "/v1/conversations/B/notes" && r.Method == http.MethodPost:
			notePosted = true
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	}))
	defer helpdeskServer.Close()

	service, err := New(context.Background(), &Options{
		Strategy:    "poll",
		MaxAttempts: 2,
		IntervalMs:  1,
		Helpdesk:    HelpdeskOptions{BaseURL: helpdeskServer.URL},
	})
	require.NoError(t, err)
	defer service.Close()
	service.mailer = mailer.NewSMTP("relay.local:587", "support@example.com",
		mailer.WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error { return nil }))

	server := service.HTTP(context.Background(), "")
	payload := []byte(`{"email":"customer@example.com","subject":"Billing","note":"created from intake form"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/resolve", bytes.NewReader(payload))
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Contains(t, recorder.Body.String(), `"resourceId":"B"`)
	assert.True(t, notePosted)
}

func TestServiceHTTP_ResolveFailureSurfacesReason(t *testing.T) {
	helpdeskServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"conversations":[]}`))
	}))
	defer helpdeskServer.Close()

	service, err := New(context.Background(), &Options{
		Strategy:    "poll",
		MaxAttempts: 2,
		IntervalMs:  1,
		Helpdesk:    HelpdeskOptions{BaseURL: helpdeskServer.URL},
	})
	require.NoError(t, err)
	defer service.Close()
	service.mailer = mailer.NewSMTP("relay.local:587", "support@example.com",
		mailer.WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error { return nil }))

	server := service.HTTP(context.Background(), "")
	req := httptest.NewRequest(http.MethodPost, "/v1/resolve", bytes.NewReader([]byte(`{"email":"customer@example.com"}`)))
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"reason":"exhausted"`)
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threadlink.yaml")
	document := `
strategy: poll
addr: 127.0.0.1:9099
maxAttempts: 7
intervalMs: 500
helpdesk:
  baseURL: https://helpdesk.example.com
  token: secret-token
`
	require.NoError(t, os.WriteFile(path, []byte(document), 0o600))

	options, err := LoadOptions(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "poll", options.Strategy)
	assert.Equal(t, "127.0.0.1:9099", options.Addr)
	assert.Equal(t, 7, options.MaxAttempts)
	assert.Equal(t, 500, options.IntervalMs)
	assert.Equal(t, "https://helpdesk.example.com", options.Helpdesk.BaseURL)
	// Unset fields still get defaults.
	assert.Equal(t, "/callbacks/helpdesk", options.CallbackURI)
	assert.Equal(t, 25, options.PageSize)
}
