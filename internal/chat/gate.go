// Package chat is the only way messages enter a match. It enforces the
// lifecycle rules on every send and applies the expiry clear.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ammar1510/spark/internal/database"
	"github.com/ammar1510/spark/internal/lifecycle"
	"github.com/ammar1510/spark/internal/logger"
	"github.com/ammar1510/spark/internal/models"
	"github.com/ammar1510/spark/internal/ratelimit"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrEmptyText   = fmt.Errorf("%w: message text is empty", ErrValidation)
	ErrNotMember   = fmt.Errorf("%w: sender is not a participant", ErrValidation)
	ErrChatLocked  = fmt.Errorf("%w: chat locked", ErrValidation)
	ErrNotFound    = errors.New("match not found")
	ErrRateLimited = errors.New("rate limited")
)

// RateLimitError carries how long the sender should wait
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Notifier delivers events to connected users
type Notifier interface {
	Publish(userID string, evt models.Event)
}

// ExpiryClearer is the part of the store Reconcile needs
type ExpiryClearer interface {
	ClearExpiry(ctx context.Context, id string) error
}

// Gate validates and records messages
type Gate struct {
	store    database.MatchStore
	clock    Clock
	limiter  ratelimit.Limiter
	notifier Notifier
	log      *logger.Logger
}

type Option func(*Gate)

func WithClock(c Clock) Option {
	return func(g *Gate) { g.clock = c }
}

func WithLimiter(l ratelimit.Limiter) Option {
	return func(g *Gate) { g.limiter = l }
}

func WithNotifier(n Notifier) Option {
	return func(g *Gate) { g.notifier = n }
}

func NewGate(store database.MatchStore, opts ...Option) *Gate {
	g := &Gate{
		store:   store,
		clock:   SystemClock{},
		limiter: ratelimit.Noop{},
		log:     logger.New("chat"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Send appends a message from senderID to the match and returns the updated
// match together with the new message. When the interested user writes into
// an expired date match, the match becomes permanent.
func (g *Gate) Send(ctx context.Context, matchID, senderID, text string) (*models.Match, *models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrEmptyText
	}

	m, err := g.Load(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if !m.HasParticipant(senderID) {
		return nil, nil, ErrNotMember
	}

	now := g.clock.Now()
	if !lifecycle.CanSend(m, senderID, now) {
		return nil, nil, ErrChatLocked
	}

	retryAfter, allowed, err := g.limiter.Allow(ctx, senderID)
	if err != nil {
		// the limiter backend being down must not block chat
		g.log.Warn("Rate limiter unavailable for %s: %v", senderID, err)
	} else if !allowed {
		return nil, nil, &RateLimitError{RetryAfter: retryAfter}
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		SenderID:  senderID,
		Text:      text,
		Timestamp: now,
	}
	if err := g.append(ctx, matchID, msg); err != nil {
		return nil, nil, err
	}

	clears := lifecycle.ClearsExpiry(m, senderID, now)
	if clears {
		if err := g.store.ClearExpiry(ctx, matchID); err != nil {
			// Message is stored. The next read reconciles the expiry.
			g.log.Error("Failed to clear expiry on match %s: %v", matchID, err)
		} else {
			g.log.Info("Match %s is now permanent, %s wrote after expiry", matchID, senderID)
		}
	}

	updated, err := g.store.GetMatch(ctx, matchID)
	if err != nil {
		g.log.Warn("Re-reading match %s after send failed: %v", matchID, err)
		updated = m.Clone()
		updated.Messages = append(updated.Messages, msg)
		if clears {
			updated.InterestExpiresAt = nil
		}
	}

	if g.notifier != nil {
		g.notifier.Publish(m.Other(senderID), models.Event{
			Type:    models.EventMessage,
			MatchID: matchID,
			Payload: msg,
		})
	}

	return updated, &msg, nil
}

// append stores msg, retrying once when the backend reports a conflicting
// writer
func (g *Gate) append(ctx context.Context, matchID string, msg models.Message) error {
	err := g.store.AppendMessage(ctx, matchID, msg)
	if errors.Is(err, database.ErrConcurrentModification) {
		g.log.Debug("Retrying append on match %s after conflict", matchID)
		err = g.store.AppendMessage(ctx, matchID, msg)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrMatchNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("append message: %w", err)
	}
}

// Load fetches a match and repairs a lost expiry clear
func (g *Gate) Load(ctx context.Context, matchID string) (*models.Match, error) {
	m, err := g.store.GetMatch(ctx, matchID)
	if errors.Is(err, database.ErrMatchNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load match: %w", err)
	}

	Reconcile(ctx, g.store, m)
	return m, nil
}

// Reconcile clears the expiry of m when an earlier clear was lost. It
// reports whether m changed.
func Reconcile(ctx context.Context, store ExpiryClearer, m *models.Match) bool {
	if !lifecycle.NeedsReconcile(m) {
		return false
	}
	if err := store.ClearExpiry(ctx, m.ID); err != nil {
		logger.New("chat").Warn("Reconcile of match %s failed: %v", m.ID, err)
		return false
	}
	m.InterestExpiresAt = nil
	logger.New("chat").Info("Reconciled lost expiry clear on match %s", m.ID)
	return true
}
