package models

import (
	"time"
)

// Message is a single chat line inside a match. Messages are immutable.
type Message struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageRequest is the structure for message creation requests
type MessageRequest struct {
	Text string `json:"text" binding:"required,min=1,max=2000"`
}
