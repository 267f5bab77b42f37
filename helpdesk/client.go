// Package helpdesk implements the third-party helpdesk collaborators the
// correlation engine consumes: listing recently active conversations and
// posting internal notes to a resolved conversation.
package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/intakehq/threadlink/resolver"
)

// Client is a REST client for the helpdesk API. It satisfies
// resolver.Lister and resolver.Annotator.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(c *Client)

// WithHTTPClient overrides the HTTP client, used by tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithToken authenticates requests with a static bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		c.httpClient = oauth2.NewClient(context.Background(), source)
	}
}

// New creates a helpdesk client for baseURL.
func New(baseURL string, options ...Option) *Client {
	ret := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// ListConversations returns up to limit conversations active after the given
// boundary, most recent first per the helpdesk's own ordering.
func (c *Client) ListConversations(ctx context.Context, after time.Time, limit int) ([]Conversation, error) {
	query := url.Values{}
	query.Set("since", after.UTC().Format(time.RFC3339))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	endpoint := c.baseURL + "/v1/conversations?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httpError("list conversations", resp)
	}
	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("list conversations: decode: %w", err)
	}
	return payload.Conversations, nil
}

// ListCandidates implements resolver.Lister.
func (c *Client) ListCandidates(ctx context.Context, after time.Time, limit int) ([]resolver.Candidate, error) {
	conversations, err := c.ListConversations(ctx, after, limit)
	if err != nil {
		return nil, err
	}
	candidates := make([]resolver.Candidate, 0, len(conversations))
	for _, conv := range conversations {
		candidates = append(candidates, resolver.Candidate{
			ID:           conv.ID,
			Subject:      conv.Subject,
			LastActiveAt: conv.LastActiveAt,
		})
	}
	return candidates, nil
}

// PostNote posts an internal note to a conversation. It implements
// resolver.Annotator and is called only after resolution succeeds.
func (c *Client) PostNote(ctx context.Context, conversationID, text string) error {
	body, err := json.Marshal(&noteRequest{Text: text})
	if err != nil {
		return err
	}
	endpoint := c.baseURL + "/v1/conversations/" + url.PathEscape(conversationID) + "/notes"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post note: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return httpError("post note", resp)
	}
	return nil
}

func httpError(operation string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: unexpected status %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(data)))
}
