package models

import (
	"errors"
	"time"
)

// InterestType records how a match came to be
type InterestType string

const (
	InterestSwipe InterestType = "swipe"
	InterestDate  InterestType = "date"
)

var ErrInvalidMatch = errors.New("invalid match")

// Match is the stored match record. Participants are fixed at creation and
// Messages only ever grow.
type Match struct {
	ID                string       `json:"id"`
	Participants      [2]string    `json:"participants"`
	Messages          []Message    `json:"messages"`
	InterestType      InterestType `json:"interest_type"`
	InterestExpiresAt *time.Time   `json:"interest_expires_at"`
	DateIdeaID        string       `json:"date_idea_id,omitempty"`
	DateAuthorID      string       `json:"date_author_id,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

// HasParticipant reports whether userID is one of the two participants
func (m *Match) HasParticipant(userID string) bool {
	return userID != "" && (m.Participants[0] == userID || m.Participants[1] == userID)
}

// Other returns the participant that is not userID
func (m *Match) Other(userID string) string {
	if m.Participants[0] == userID {
		return m.Participants[1]
	}
	return m.Participants[0]
}

// InterestedUserID is the participant who reacted to the date idea.
// Empty for swipe matches.
func (m *Match) InterestedUserID() string {
	if m.InterestType != InterestDate {
		return ""
	}
	return m.Other(m.DateAuthorID)
}

// LastMessage returns the newest message or nil
func (m *Match) LastMessage() *Message {
	if len(m.Messages) == 0 {
		return nil
	}
	return &m.Messages[len(m.Messages)-1]
}

// Clone returns a deep copy so callers can't mutate stored state
func (m *Match) Clone() *Match {
	c := *m
	c.Messages = append([]Message(nil), m.Messages...)
	if m.InterestExpiresAt != nil {
		t := *m.InterestExpiresAt
		c.InterestExpiresAt = &t
	}
	return &c
}

// NewMatch carries the fields a store needs to create a match
type NewMatch struct {
	Participants      [2]string
	InterestType      InterestType
	InterestExpiresAt *time.Time
	DateIdeaID        string
	DateAuthorID      string
}

// Validate enforces the creation-time invariants
func (n NewMatch) Validate() error {
	a, b := n.Participants[0], n.Participants[1]
	if a == "" || b == "" || a == b {
		return errors.Join(ErrInvalidMatch, errors.New("a match needs two distinct participants"))
	}

	switch n.InterestType {
	case InterestSwipe:
		if n.InterestExpiresAt != nil || n.DateIdeaID != "" || n.DateAuthorID != "" {
			return errors.Join(ErrInvalidMatch, errors.New("swipe matches carry no date interest fields"))
		}
	case InterestDate:
		if n.DateIdeaID == "" {
			return errors.Join(ErrInvalidMatch, errors.New("date matches need a date idea"))
		}
		if n.DateAuthorID != a && n.DateAuthorID != b {
			return errors.Join(ErrInvalidMatch, errors.New("date author must be a participant"))
		}
	default:
		return errors.Join(ErrInvalidMatch, errors.New("unknown interest type"))
	}
	return nil
}

// MatchView is a match as seen by one participant
type MatchView struct {
	ID                string       `json:"id"`
	User              UserResponse `json:"user"`
	Messages          []Message    `json:"messages"`
	InterestType      InterestType `json:"interest_type"`
	InterestExpiresAt *time.Time   `json:"interest_expires_at"`
	DateIdeaID        string       `json:"date_idea_id,omitempty"`
	DateAuthorID      string       `json:"date_author_id,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	Availability      Availability `json:"availability"`
}

// Availability is the chat input state for the viewing user
type Availability struct {
	InputEnabled  bool   `json:"input_enabled"`
	Banner        string `json:"banner,omitempty"`
	BannerText    string `json:"banner_text,omitempty"`
	TimeRemaining string `json:"time_remaining,omitempty"`
	State         string `json:"state"`
}
