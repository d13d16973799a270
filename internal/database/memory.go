package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ammar1510/spark/internal/models"
)

type likeKey struct{ from, to string }

type storedMatch struct {
	match *models.Match
	seq   int64
}

type storedIdea struct {
	idea *models.DateIdea
	seq  int64
}

// MemoryDB keeps everything in process. Useful for local runs and tests.
type MemoryDB struct {
	mu sync.RWMutex

	users   map[string]*models.User
	byEmail map[string]string
	likes   map[likeKey]struct{}
	ideas   map[string]*storedIdea
	matches map[string]*storedMatch
	seq     int64
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
		likes:   make(map[likeKey]struct{}),
		ideas:   make(map[string]*storedIdea),
		matches: make(map[string]*storedMatch),
	}
}

func (db *MemoryDB) nextSeq() int64 {
	db.seq++
	return db.seq
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Images = append([]string{}, u.Images...)
	c.Interests = append([]string{}, u.Interests...)
	return &c
}

func (db *MemoryDB) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := strings.ToLower(email)
	if _, ok := db.byEmail[key]; ok {
		return nil, ErrUserAlreadyExists
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Age:          18,
		Images:       []string{},
		Interests:    []string{},
		CreatedAt:    time.Now().UTC(),
	}
	db.users[user.ID] = user
	db.byEmail[key] = user.ID

	return cloneUser(user), nil
}

func (db *MemoryDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	id, ok := db.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(db.users[id]), nil
}

func (db *MemoryDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	user, ok := db.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (db *MemoryDB) GetAllUsers(ctx context.Context, excludeUserID string) ([]*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	users := make([]*models.User, 0, len(db.users))
	for id, u := range db.users {
		if id != excludeUserID {
			users = append(users, cloneUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (db *MemoryDB) UpdateUser(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	user, ok := db.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	p.Apply(user)
	return cloneUser(user), nil
}

func (db *MemoryDB) SetPremium(ctx context.Context, id string, premium bool) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	user, ok := db.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	user.IsPremium = premium
	return cloneUser(user), nil
}

func (db *MemoryDB) RecordLike(ctx context.Context, fromID, toID string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[toID]; !ok {
		return false, ErrUserNotFound
	}
	db.likes[likeKey{fromID, toID}] = struct{}{}
	_, mutual := db.likes[likeKey{toID, fromID}]
	return mutual, nil
}

func (db *MemoryDB) CreateDateIdea(ctx context.Context, idea *models.DateIdea) (*models.DateIdea, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored := *idea
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	db.ideas[stored.ID] = &storedIdea{idea: &stored, seq: db.nextSeq()}

	out := stored
	return &out, nil
}

func (db *MemoryDB) GetDateIdea(ctx context.Context, id string) (*models.DateIdea, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s, ok := db.ideas[id]
	if !ok {
		return nil, ErrDateIdeaNotFound
	}
	out := *s.idea
	return &out, nil
}

func (db *MemoryDB) ListDateIdeas(ctx context.Context) ([]*models.DateIdea, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored := make([]*storedIdea, 0, len(db.ideas))
	for _, s := range db.ideas {
		stored = append(stored, s)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq > stored[j].seq })

	ideas := make([]*models.DateIdea, len(stored))
	for i, s := range stored {
		out := *s.idea
		ideas[i] = &out
	}
	return ideas, nil
}

func (db *MemoryDB) CreateMatch(ctx context.Context, nm models.NewMatch) (*models.Match, error) {
	if err := nm.Validate(); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, s := range db.matches {
		if sameMatchKey(s.match, nm) {
			return nil, ErrMatchAlreadyExists
		}
	}

	m := newMatchRecord(uuid.NewString(), nm, time.Now().UTC())
	db.matches[m.ID] = &storedMatch{match: m, seq: db.nextSeq()}

	return m.Clone(), nil
}

// sameMatchKey mirrors the unique indexes of the SQL schema
func sameMatchKey(m *models.Match, nm models.NewMatch) bool {
	if m.InterestType != nm.InterestType || !samePair(m.Participants, nm.Participants) {
		return false
	}
	return m.InterestType == models.InterestSwipe || m.DateIdeaID == nm.DateIdeaID
}

func samePair(a, b [2]string) bool {
	return (a[0] == b[0] && a[1] == b[1]) || (a[0] == b[1] && a[1] == b[0])
}

func (db *MemoryDB) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s, ok := db.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return s.match.Clone(), nil
}

func (db *MemoryDB) ListMatchesFor(ctx context.Context, userID string) ([]*models.Match, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var stored []*storedMatch
	for _, s := range db.matches {
		if s.match.HasParticipant(userID) {
			stored = append(stored, s)
		}
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq > stored[j].seq })

	matches := make([]*models.Match, len(stored))
	for i, s := range stored {
		matches[i] = s.match.Clone()
	}
	return matches, nil
}

func (db *MemoryDB) RemoveMatch(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.matches[id]
	if !ok {
		return ErrMatchNotFound
	}
	if author := stored.match.DateAuthorID; author != "" {
		for _, msg := range stored.match.Messages {
			if msg.SenderID == author {
				return ErrMatchEngaged
			}
		}
	}
	delete(db.matches, id)
	return nil
}

func (db *MemoryDB) AppendMessage(ctx context.Context, matchID string, msg models.Message) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.matches[matchID]
	if !ok {
		return ErrMatchNotFound
	}
	msg.MatchID = matchID
	s.match.Messages = append(s.match.Messages, msg)
	return nil
}

func (db *MemoryDB) ClearExpiry(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.matches[id]
	if !ok {
		return ErrMatchNotFound
	}
	s.match.InterestExpiresAt = nil
	return nil
}

func (db *MemoryDB) FindSwipeMatch(ctx context.Context, userA, userB string) (*models.Match, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, s := range db.matches {
		if s.match.InterestType == models.InterestSwipe && samePair(s.match.Participants, [2]string{userA, userB}) {
			return s.match.Clone(), nil
		}
	}
	return nil, ErrMatchNotFound
}

func (db *MemoryDB) FindDateInterest(ctx context.Context, userID, dateIdeaID string) (*models.Match, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, s := range db.matches {
		m := s.match
		if m.InterestType == models.InterestDate && m.DateIdeaID == dateIdeaID && m.InterestedUserID() == userID {
			return m.Clone(), nil
		}
	}
	return nil, ErrMatchNotFound
}

func (db *MemoryDB) Close() error {
	return nil
}
