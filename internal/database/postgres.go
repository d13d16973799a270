package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq" // PostgreSQL driver

	"github.com/ammar1510/spark/internal/models"
)

// PostgresDB is the self-hosted backend over database/sql
type PostgresDB struct {
	*sql.DB
}

func NewPostgresDB(ctx context.Context, connStr string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &PostgresDB{db}, nil
}

// translatePQ maps driver errors onto the package sentinels
func translatePQ(err error, conflict error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return conflict
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
		}
	}
	return err
}

func (db *PostgresDB) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
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

	_, err := db.ExecContext(ctx, insertUserSQL,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Age, user.CreatedAt)
	if err != nil {
		return nil, translatePQ(err, ErrUserAlreadyExists)
	}

	return user, nil
}

func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, userByEmailSQL, email))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, userByIDSQL, id))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (db *PostgresDB) GetAllUsers(ctx context.Context, excludeUserID string) ([]*models.User, error) {
	rows, err := db.QueryContext(ctx, usersExceptSQL, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

func (db *PostgresDB) UpdateUser(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error) {
	args, err := profileArgs(id, p)
	if err != nil {
		return nil, err
	}
	user, err := scanUser(db.QueryRowContext(ctx, updateUserSQL, args...))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (db *PostgresDB) SetPremium(ctx context.Context, id string, premium bool) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, setPremiumSQL, id, premium))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (db *PostgresDB) RecordLike(ctx context.Context, fromID, toID string) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertLikeSQL, fromID, toID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("insert like: %w", err)
	}

	var mutual bool
	if err := tx.QueryRowContext(ctx, reciprocalLikeSQL, toID, fromID).Scan(&mutual); err != nil {
		return false, fmt.Errorf("lookup reciprocal like: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return mutual, nil
}

func (db *PostgresDB) CreateDateIdea(ctx context.Context, idea *models.DateIdea) (*models.DateIdea, error) {
	stored := *idea
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()

	if _, err := db.ExecContext(ctx, insertIdeaSQL, ideaArgs(&stored)...); err != nil {
		return nil, fmt.Errorf("insert date idea: %w", err)
	}
	return &stored, nil
}

func (db *PostgresDB) GetDateIdea(ctx context.Context, id string) (*models.DateIdea, error) {
	idea, err := scanIdea(db.QueryRowContext(ctx, ideaByIDSQL, id))
	if err == sql.ErrNoRows {
		return nil, ErrDateIdeaNotFound
	}
	return idea, err
}

func (db *PostgresDB) ListDateIdeas(ctx context.Context) ([]*models.DateIdea, error) {
	rows, err := db.QueryContext(ctx, ideasSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query date ideas: %w", err)
	}
	defer rows.Close()

	var ideas []*models.DateIdea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan date idea: %w", err)
		}
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

func (db *PostgresDB) CreateMatch(ctx context.Context, nm models.NewMatch) (*models.Match, error) {
	if err := nm.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()
	if _, err := db.ExecContext(ctx, insertMatchSQL, matchArgs(id, nm, createdAt)...); err != nil {
		return nil, translatePQ(err, ErrMatchAlreadyExists)
	}
	return newMatchRecord(id, nm, createdAt), nil
}

func (db *PostgresDB) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	m, err := scanMatch(db.QueryRowContext(ctx, matchByIDSQL, id))
	if err == sql.ErrNoRows {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}

	msgs, err := db.queryMessages(ctx, messagesForMatchSQL, id)
	if err != nil {
		return nil, err
	}
	attachMessages([]*models.Match{m}, msgs)
	return m, nil
}

func (db *PostgresDB) queryMessages(ctx context.Context, query string, arg any) ([]models.Message, error) {
	rows, err := db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (db *PostgresDB) queryMatches(ctx context.Context, query string, args ...any) ([]*models.Match, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return matches, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	msgs, err := db.queryMessages(ctx, messagesForMatchesSQL, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	attachMessages(matches, msgs)
	return matches, nil
}

func (db *PostgresDB) ListMatchesFor(ctx context.Context, userID string) ([]*models.Match, error) {
	return db.queryMatches(ctx, matchesForUserSQL, userID)
}

func (db *PostgresDB) FindSwipeMatch(ctx context.Context, userA, userB string) (*models.Match, error) {
	matches, err := db.queryMatches(ctx, swipeMatchSQL, userA, userB)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrMatchNotFound
	}
	return matches[0], nil
}

func (db *PostgresDB) FindDateInterest(ctx context.Context, userID, dateIdeaID string) (*models.Match, error) {
	matches, err := db.queryMatches(ctx, dateInterestSQL, userID, dateIdeaID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrMatchNotFound
	}
	return matches[0], nil
}

// execOne runs a statement that must touch exactly one row
func (db *PostgresDB) execOne(ctx context.Context, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgForeignKeyViolation {
		// the match was removed while the statement ran
		return ErrMatchNotFound
	}
	if err != nil {
		return translatePQ(err, ErrConcurrentModification)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrMatchNotFound
	}

	return nil
}

// RemoveMatch locks the match row first. In-flight message inserts hold a
// key share lock on it through the foreign key, so the author check below
// sees every message committed before the delete.
func (db *PostgresDB) RemoveMatch(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var authorID string
	err = tx.QueryRowContext(ctx, lockMatchSQL, id).Scan(&authorID)
	if err == sql.ErrNoRows {
		return ErrMatchNotFound
	}
	if err != nil {
		return translatePQ(err, ErrConcurrentModification)
	}

	if authorID != "" {
		var wrote bool
		if err := tx.QueryRowContext(ctx, authorWroteSQL, id, authorID).Scan(&wrote); err != nil {
			return fmt.Errorf("check author messages: %w", err)
		}
		if wrote {
			return ErrMatchEngaged
		}
	}

	if _, err := tx.ExecContext(ctx, deleteMatchSQL, id); err != nil {
		return translatePQ(err, ErrConcurrentModification)
	}
	if err := tx.Commit(); err != nil {
		return translatePQ(fmt.Errorf("commit tx: %w", err), ErrConcurrentModification)
	}
	return nil
}

func (db *PostgresDB) AppendMessage(ctx context.Context, matchID string, msg models.Message) error {
	return db.execOne(ctx, insertMessageSQL, msg.ID, matchID, msg.SenderID, msg.Text, msg.Timestamp)
}

func (db *PostgresDB) ClearExpiry(ctx context.Context, id string) error {
	return db.execOne(ctx, clearExpirySQL, id)
}

func (db *PostgresDB) Close() error {
	return db.DB.Close()
}
