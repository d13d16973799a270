package models

// Event types pushed to connected clients
const (
	EventMessage      = "message"
	EventMatch        = "match"
	EventMatchRemoved = "match_removed"
	EventTyping       = "typing"
	EventError        = "error"
)

// Event is a server push addressed to one user
type Event struct {
	Type    string      `json:"type"`
	MatchID string      `json:"match_id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}
