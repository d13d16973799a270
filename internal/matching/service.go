// Package matching creates and removes matches: mutual likes, interest in
// date ideas and revocation of that interest.
package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ammar1510/spark/internal/chat"
	"github.com/ammar1510/spark/internal/database"
	"github.com/ammar1510/spark/internal/lifecycle"
	"github.com/ammar1510/spark/internal/logger"
	"github.com/ammar1510/spark/internal/models"
)

// DefaultInterestWindow is how long a date chat stays open before the
// author has to re-engage
const DefaultInterestWindow = 72 * time.Hour

var (
	ErrValidation      = errors.New("validation error")
	ErrSelfLike        = fmt.Errorf("%w: cannot like yourself", ErrValidation)
	ErrOwnIdea         = fmt.Errorf("%w: cannot express interest in your own date idea", ErrValidation)
	ErrNotFound        = errors.New("not found")
	ErrNotInterested   = errors.New("only the interested user can revoke")
	ErrAuthorReplied   = errors.New("interest can no longer be revoked, the author already replied")
	ErrNotDateInterest = errors.New("swipe matches cannot be revoked")
)

// LikeResult reports the outcome of a like
type LikeResult struct {
	Matched bool          `json:"matched"`
	Match   *models.Match `json:"match,omitempty"`
}

// Service owns match creation and removal
type Service struct {
	db       database.DBInterface
	clock    chat.Clock
	window   time.Duration
	notifier chat.Notifier
	log      *logger.Logger
}

type Option func(*Service)

func WithClock(c chat.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithNotifier(n chat.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithInterestWindow overrides DefaultInterestWindow. Non-positive values are
// ignored.
func WithInterestWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.window = d
		}
	}
}

func NewService(db database.DBInterface, opts ...Option) *Service {
	s := &Service{
		db:     db,
		clock:  chat.SystemClock{},
		window: DefaultInterestWindow,
		log:    logger.New("matching"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) publish(userID string, evt models.Event) {
	if s.notifier != nil {
		s.notifier.Publish(userID, evt)
	}
}

// Like records fromID liking toID. A reciprocal like opens a swipe match
// unless the pair already has one.
func (s *Service) Like(ctx context.Context, fromID, toID string) (*LikeResult, error) {
	if fromID == toID {
		return nil, ErrSelfLike
	}

	mutual, err := s.db.RecordLike(ctx, fromID, toID)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record like: %w", err)
	}
	if !mutual {
		return &LikeResult{}, nil
	}

	if existing, err := s.db.FindSwipeMatch(ctx, fromID, toID); err == nil {
		return &LikeResult{Matched: true, Match: existing}, nil
	} else if !errors.Is(err, database.ErrMatchNotFound) {
		return nil, fmt.Errorf("find swipe match: %w", err)
	}

	m, err := s.db.CreateMatch(ctx, models.NewMatch{
		Participants: [2]string{fromID, toID},
		InterestType: models.InterestSwipe,
	})
	if errors.Is(err, database.ErrMatchAlreadyExists) {
		// lost a race with the other user's like
		m, err = s.db.FindSwipeMatch(ctx, fromID, toID)
	}
	if err != nil {
		return nil, fmt.Errorf("create swipe match: %w", err)
	}

	s.log.Info("Swipe match %s created between %s and %s", m.ID, fromID, toID)
	s.publish(toID, models.Event{Type: models.EventMatch, MatchID: m.ID, Payload: m})
	s.publish(fromID, models.Event{Type: models.EventMatch, MatchID: m.ID, Payload: m})

	return &LikeResult{Matched: true, Match: m}, nil
}

// ExpressInterest opens a date match between userID and the author of the
// idea. Expressing interest twice returns the existing match with created
// set to false.
func (s *Service) ExpressInterest(ctx context.Context, userID, ideaID string) (*models.Match, bool, error) {
	idea, err := s.db.GetDateIdea(ctx, ideaID)
	if errors.Is(err, database.ErrDateIdeaNotFound) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("get date idea: %w", err)
	}
	if idea.AuthorID == userID {
		return nil, false, ErrOwnIdea
	}

	if existing, err := s.db.FindDateInterest(ctx, userID, ideaID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, database.ErrMatchNotFound) {
		return nil, false, fmt.Errorf("find date interest: %w", err)
	}

	expiresAt := s.clock.Now().Add(s.window)
	m, err := s.db.CreateMatch(ctx, models.NewMatch{
		Participants:      [2]string{userID, idea.AuthorID},
		InterestType:      models.InterestDate,
		InterestExpiresAt: &expiresAt,
		DateIdeaID:        idea.ID,
		DateAuthorID:      idea.AuthorID,
	})
	if errors.Is(err, database.ErrMatchAlreadyExists) {
		existing, findErr := s.db.FindDateInterest(ctx, userID, ideaID)
		if findErr != nil {
			return nil, false, fmt.Errorf("find date interest: %w", findErr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create date match: %w", err)
	}

	s.log.Info("Date match %s opened by %s on idea %s, expires %s", m.ID, userID, ideaID, expiresAt.Format(time.RFC3339))
	s.publish(idea.AuthorID, models.Event{Type: models.EventMatch, MatchID: m.ID, Payload: m})

	return m, true, nil
}

// RevokeInterest withdraws userID's interest in an idea
func (s *Service) RevokeInterest(ctx context.Context, userID, ideaID string) error {
	m, err := s.db.FindDateInterest(ctx, userID, ideaID)
	if errors.Is(err, database.ErrMatchNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find date interest: %w", err)
	}
	return s.revoke(ctx, userID, m)
}

// ToggleInterest expresses interest when there is none and revokes it
// otherwise. It reports whether the user is interested afterwards.
func (s *Service) ToggleInterest(ctx context.Context, userID, ideaID string) (*models.Match, bool, error) {
	m, err := s.db.FindDateInterest(ctx, userID, ideaID)
	switch {
	case err == nil:
		if err := s.revoke(ctx, userID, m); err != nil {
			return nil, true, err
		}
		return nil, false, nil
	case errors.Is(err, database.ErrMatchNotFound):
		m, _, err := s.ExpressInterest(ctx, userID, ideaID)
		if err != nil {
			return nil, false, err
		}
		return m, true, nil
	default:
		return nil, false, fmt.Errorf("find date interest: %w", err)
	}
}

// RevokeMatch removes a date match by id on behalf of userID
func (s *Service) RevokeMatch(ctx context.Context, userID, matchID string) error {
	m, err := s.db.GetMatch(ctx, matchID)
	if errors.Is(err, database.ErrMatchNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get match: %w", err)
	}
	if !m.HasParticipant(userID) {
		return ErrNotFound
	}
	return s.revoke(ctx, userID, m)
}

// revoke deletes m. Only the interested user may do so, and only while the
// author has not written anything.
func (s *Service) revoke(ctx context.Context, userID string, m *models.Match) error {
	if m.InterestType != models.InterestDate {
		return ErrNotDateInterest
	}
	if m.InterestedUserID() != userID {
		return ErrNotInterested
	}
	for _, msg := range m.Messages {
		if msg.SenderID == m.DateAuthorID {
			return ErrAuthorReplied
		}
	}

	// m may be stale; the store re-checks for author messages atomically
	if err := s.db.RemoveMatch(ctx, m.ID); err != nil {
		switch {
		case errors.Is(err, database.ErrMatchNotFound):
			return ErrNotFound
		case errors.Is(err, database.ErrMatchEngaged):
			return ErrAuthorReplied
		}
		return fmt.Errorf("remove match: %w", err)
	}

	s.log.Info("Date match %s revoked by %s", m.ID, userID)
	s.publish(m.DateAuthorID, models.Event{Type: models.EventMatchRemoved, MatchID: m.ID})
	return nil
}

// ListFor returns the user's matches, newest first, each with the chat
// availability for that user
func (s *Service) ListFor(ctx context.Context, userID string) ([]models.MatchView, error) {
	matches, err := s.db.ListMatchesFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	now := s.clock.Now()
	views := make([]models.MatchView, 0, len(matches))
	for _, m := range matches {
		chat.Reconcile(ctx, s.db, m)
		views = append(views, s.view(ctx, userID, m, now))
	}
	return views, nil
}

// Get returns one match as seen by userID. Matches the user is not part of
// are reported as not found.
func (s *Service) Get(ctx context.Context, userID, matchID string) (*models.MatchView, error) {
	m, err := s.db.GetMatch(ctx, matchID)
	if errors.Is(err, database.ErrMatchNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	if !m.HasParticipant(userID) {
		return nil, ErrNotFound
	}

	chat.Reconcile(ctx, s.db, m)
	view := s.view(ctx, userID, m, s.clock.Now())
	return &view, nil
}

// View renders m for userID at the current time
func (s *Service) View(ctx context.Context, userID string, m *models.Match) models.MatchView {
	return s.view(ctx, userID, m, s.clock.Now())
}

func (s *Service) view(ctx context.Context, userID string, m *models.Match, now time.Time) models.MatchView {
	otherID := m.Other(userID)
	other := models.UserResponse{ID: otherID, Images: []string{}, Interests: []string{}}
	if u, err := s.db.GetUserByID(ctx, otherID); err == nil {
		other = u.Response(false)
	} else {
		s.log.Warn("Could not load user %s for match %s: %v", otherID, m.ID, err)
	}

	messages := m.Messages
	if messages == nil {
		messages = []models.Message{}
	}

	eval := lifecycle.Evaluate(m, userID, now)
	return models.MatchView{
		ID:                m.ID,
		User:              other,
		Messages:          messages,
		InterestType:      m.InterestType,
		InterestExpiresAt: m.InterestExpiresAt,
		DateIdeaID:        m.DateIdeaID,
		DateAuthorID:      m.DateAuthorID,
		CreatedAt:         m.CreatedAt,
		Availability:      lifecycle.Availability(eval, other.Name),
	}
}
