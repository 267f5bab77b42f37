package helpdesk

import "time"

// Conversation is a support thread as returned by the helpdesk listing
// endpoint.
type Conversation struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

type listResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type noteRequest struct {
	Text string `json:"text"`
}
