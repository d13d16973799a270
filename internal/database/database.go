package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/ammar1510/spark/internal/models"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrUserAlreadyExists      = errors.New("user already exists")
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchAlreadyExists     = errors.New("match already exists")
	ErrDateIdeaNotFound       = errors.New("date idea not found")
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrMatchEngaged means the date author already wrote in the match, so
	// it can no longer be removed
	ErrMatchEngaged = errors.New("match author already replied")
)

type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetAllUsers(ctx context.Context, excludeUserID string) ([]*models.User, error)
	UpdateUser(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error)
	SetPremium(ctx context.Context, id string, premium bool) (*models.User, error)
}

type LikeStore interface {
	// RecordLike stores fromID liking toID and reports whether toID already
	// liked fromID back.
	RecordLike(ctx context.Context, fromID, toID string) (bool, error)
}

type DateIdeaStore interface {
	CreateDateIdea(ctx context.Context, idea *models.DateIdea) (*models.DateIdea, error)
	GetDateIdea(ctx context.Context, id string) (*models.DateIdea, error)
	ListDateIdeas(ctx context.Context) ([]*models.DateIdea, error)
}

// MatchStore holds match records. Implementations return copies, never
// shared state.
type MatchStore interface {
	CreateMatch(ctx context.Context, nm models.NewMatch) (*models.Match, error)
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	ListMatchesFor(ctx context.Context, userID string) ([]*models.Match, error)
	// RemoveMatch deletes a match together with its messages. A date match
	// the author has written in is kept and ErrMatchEngaged returned; the
	// check and the delete are atomic.
	RemoveMatch(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, matchID string, msg models.Message) error
	// ClearExpiry makes a match permanent. Clearing twice is a no-op.
	ClearExpiry(ctx context.Context, id string) error

	FindSwipeMatch(ctx context.Context, userA, userB string) (*models.Match, error)
	FindDateInterest(ctx context.Context, userID, dateIdeaID string) (*models.Match, error)
}

type DBInterface interface {
	UserStore
	LikeStore
	DateIdeaStore
	MatchStore

	Close() error
}

type DatabaseType string

const (
	PostgreSQL DatabaseType = "postgres"
	Supabase   DatabaseType = "supabase"
	Memory     DatabaseType = "memory"
)

// NewDatabase picks the backend at startup
func NewDatabase(ctx context.Context, dbType DatabaseType, connStr string) (DBInterface, error) {
	switch dbType {
	case PostgreSQL:
		db, err := NewPostgresDB(ctx, connStr)
		if err != nil {
			return nil, err
		}
		return db, nil
	case Supabase:
		db, err := NewSupabaseDB(ctx, connStr)
		if err != nil {
			return nil, err
		}
		return db, nil
	case Memory:
		return NewMemoryDB(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}
