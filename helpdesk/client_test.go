package helpdesk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListConversations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/conversations", r.URL.Path)
		assert.Equal(t, "2026-08-23T10:00:00Z", r.URL.Query().Get("since"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"conversations":[
			{"id":"A","subject":"Billing issue","lastActiveAt":"2026-08-23T10:01:40Z"},
			{"id":"B","subject":"Billing issue","lastActiveAt":"2026-08-23T10:03:20Z"}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, WithToken("test-token"))
	after := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	conversations, err := client.ListConversations(context.Background(), after, 25)
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, "A", conversations[0].ID)
	assert.Equal(t, "Billing issue", conversations[0].Subject)
	assert.True(t, conversations[1].LastActiveAt.After(conversations[0].LastActiveAt))
}

func TestClient_ListCandidatesAdaptsConversations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"conversations":[{"id":"C","subject":"Other","lastActiveAt":"2026-08-23T10:05:00Z"}]}`))
	}))
	defer server.Close()

	client := New(server.URL)
	candidates, err := client.ListCandidates(context.Background(), time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "C", candidates[0].ID)
	assert.Equal(t, "Other", candidates[0].Subject)
}

func TestClient_ListConversationsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.ListConversations(context.Background(), time.Now(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_PostNote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/conversations/thread-42/notes", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "created from intake form", payload["text"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(server.URL)
	err := client.PostNote(context.Background(), "thread-42", "created from intake form")
	require.NoError(t, err)
}

func TestClient_PostNoteErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL)
	err := client.PostNote(context.Background(), "missing", "note")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
