// Package lifecycle decides chat availability for a match. Every function is
// pure: the current time is always passed in.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/ammar1510/spark/internal/models"
)

// BannerKind tells the presentation layer which banner to show
type BannerKind string

const (
	BannerNone           BannerKind = ""
	BannerTimeRemaining  BannerKind = "time_remaining"
	BannerReengage       BannerKind = "reengage"
	BannerAwaitingAuthor BannerKind = "awaiting_author"
)

// State names the position of a date match in its availability machine
type State string

const (
	StateOpen                  State = "open"
	StateExpiredAwaitingAuthor State = "expired_awaiting_author"
	StateExpiredAuthorEngaged  State = "expired_author_engaged"
	StatePermanent             State = "permanent"
)

// Evaluation is the result of Evaluate
type Evaluation struct {
	InputEnabled  bool
	Banner        BannerKind
	TimeRemaining string
	State         State
}

// IsExpired reports whether a date match's window has passed. A nil expiry
// means permanent.
func IsExpired(m *models.Match, now time.Time) bool {
	return m.InterestType == models.InterestDate &&
		m.InterestExpiresAt != nil &&
		m.InterestExpiresAt.Before(now)
}

// authorEngaged is true once the author wrote the latest message
func authorEngaged(m *models.Match) bool {
	last := m.LastMessage()
	return last != nil && last.SenderID == m.DateAuthorID
}

// Evaluate derives chat availability for currentUserID at now.
func Evaluate(m *models.Match, currentUserID string, now time.Time) Evaluation {
	if m.InterestType != models.InterestDate {
		return Evaluation{InputEnabled: true, State: StatePermanent}
	}

	if !IsExpired(m, now) {
		if m.InterestExpiresAt == nil {
			return Evaluation{InputEnabled: true, State: StatePermanent}
		}
		return Evaluation{
			InputEnabled:  true,
			Banner:        BannerTimeRemaining,
			TimeRemaining: FormatTimeRemaining(*m.InterestExpiresAt, now),
			State:         StateOpen,
		}
	}

	state := StateExpiredAwaitingAuthor
	if authorEngaged(m) {
		state = StateExpiredAuthorEngaged
	}

	if currentUserID == m.DateAuthorID {
		return Evaluation{InputEnabled: true, Banner: BannerReengage, State: state}
	}
	return Evaluation{
		InputEnabled: CanSend(m, currentUserID, now),
		Banner:       BannerAwaitingAuthor,
		State:        state,
	}
}

// StateOf returns the machine state without a viewer
func StateOf(m *models.Match, now time.Time) State {
	return Evaluate(m, m.DateAuthorID, now).State
}

// CanSend is the input-enabled predicate shared by Evaluate and the
// messaging gate. Participation is checked by the caller.
func CanSend(m *models.Match, senderID string, now time.Time) bool {
	if !IsExpired(m, now) || senderID == m.DateAuthorID {
		return true
	}
	return authorEngaged(m)
}

// ClearsExpiry reports whether a message from senderID converts the match to
// permanent. Only the interested user breaking the silence after expiry does;
// an author reply never does.
func ClearsExpiry(m *models.Match, senderID string, now time.Time) bool {
	return IsExpired(m, now) && senderID != m.DateAuthorID
}

// NeedsReconcile reports a date match that still carries an expiry although
// the interested user already wrote after it passed, meaning an earlier clear
// was lost.
func NeedsReconcile(m *models.Match) bool {
	if m.InterestType != models.InterestDate || m.InterestExpiresAt == nil {
		return false
	}
	interested := m.InterestedUserID()
	for i := len(m.Messages) - 1; i >= 0; i-- {
		msg := m.Messages[i]
		if !msg.Timestamp.After(*m.InterestExpiresAt) {
			break
		}
		if msg.SenderID == interested {
			return true
		}
	}
	return false
}

const (
	msPerDay  = 86_400_000
	msPerHour = 3_600_000
)

// FormatTimeRemaining renders the countdown shown while a window is open
func FormatTimeRemaining(expiresAt, now time.Time) string {
	total := expiresAt.Sub(now).Milliseconds()
	if total <= 0 {
		return "Expired"
	}
	if days := total / msPerDay; days > 0 {
		return fmt.Sprintf("%d %s left", days, plural("day", days))
	}
	if hours := (total / msPerHour) % 24; hours > 0 {
		return fmt.Sprintf("%d %s left", hours, plural("hour", hours))
	}
	return "Expires soon"
}

func plural(word string, n int64) string {
	if n > 1 {
		return word + "s"
	}
	return word
}

// BannerText renders a default banner line. otherName is the other
// participant's display name.
func BannerText(e Evaluation, otherName string) string {
	switch e.Banner {
	case BannerTimeRemaining:
		return "This chat is open for a limited time: " + e.TimeRemaining
	case BannerReengage:
		return "Initial chat window expired. Send a message to re-engage."
	case BannerAwaitingAuthor:
		if e.InputEnabled {
			return fmt.Sprintf("Chat expired. Respond to %s to continue the conversation.", otherName)
		}
		return fmt.Sprintf("Chat expired. Waiting for %s to respond.", otherName)
	default:
		return ""
	}
}

// Availability converts an evaluation into its API shape
func Availability(e Evaluation, otherName string) models.Availability {
	return models.Availability{
		InputEnabled:  e.InputEnabled,
		Banner:        string(e.Banner),
		BannerText:    BannerText(e, otherName),
		TimeRemaining: e.TimeRemaining,
		State:         string(e.State),
	}
}
