package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ammar1510/spark/internal/models"
)

// SupabaseDB talks to a managed Postgres through its connection pooler.
// Pooler endpoints run in transaction mode, so statements are sent with the
// simple protocol instead of being prepared per connection.
type SupabaseDB struct {
	pool *pgxpool.Pool
}

func NewSupabaseDB(ctx context.Context, dsn string) (*SupabaseDB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("supabase dsn is required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse supabase dsn: %w", err)
	}
	cfg.MinConns = 0
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create supabase pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping supabase: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SupabaseDB{pool: pool}, nil
}

func (db *SupabaseDB) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return translatePgx(fmt.Errorf("commit tx: %w", err), ErrConcurrentModification)
	}

	return nil
}

func translatePgx(err error, conflict error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return conflict
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
		}
	}
	return err
}

func (db *SupabaseDB) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
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

	_, err := db.pool.Exec(ctx, insertUserSQL,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Age, user.CreatedAt)
	if err != nil {
		return nil, translatePgx(err, ErrUserAlreadyExists)
	}
	return user, nil
}

func (db *SupabaseDB) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	user, err := scanUser(db.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (db *SupabaseDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, userByEmailSQL, email)
}

func (db *SupabaseDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.getUser(ctx, userByIDSQL, id)
}

func (db *SupabaseDB) UpdateUser(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error) {
	args, err := profileArgs(id, p)
	if err != nil {
		return nil, err
	}
	user, err := scanUser(db.pool.QueryRow(ctx, updateUserSQL, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (db *SupabaseDB) SetPremium(ctx context.Context, id string, premium bool) (*models.User, error) {
	user, err := scanUser(db.pool.QueryRow(ctx, setPremiumSQL, id, premium))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (db *SupabaseDB) GetAllUsers(ctx context.Context, excludeUserID string) ([]*models.User, error) {
	rows, err := db.pool.Query(ctx, usersExceptSQL, excludeUserID)
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
	return users, rows.Err()
}

func (db *SupabaseDB) RecordLike(ctx context.Context, fromID, toID string) (bool, error) {
	var mutual bool
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertLikeSQL, fromID, toID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return ErrUserNotFound
			}
			return fmt.Errorf("insert like: %w", err)
		}
		if err := tx.QueryRow(ctx, reciprocalLikeSQL, toID, fromID).Scan(&mutual); err != nil {
			return fmt.Errorf("lookup reciprocal like: %w", err)
		}
		return nil
	})
	return mutual, err
}

func (db *SupabaseDB) CreateDateIdea(ctx context.Context, idea *models.DateIdea) (*models.DateIdea, error) {
	stored := *idea
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()

	if _, err := db.pool.Exec(ctx, insertIdeaSQL, ideaArgs(&stored)...); err != nil {
		return nil, fmt.Errorf("insert date idea: %w", err)
	}
	return &stored, nil
}

func (db *SupabaseDB) GetDateIdea(ctx context.Context, id string) (*models.DateIdea, error) {
	idea, err := scanIdea(db.pool.QueryRow(ctx, ideaByIDSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDateIdeaNotFound
	}
	return idea, err
}

func (db *SupabaseDB) ListDateIdeas(ctx context.Context) ([]*models.DateIdea, error) {
	rows, err := db.pool.Query(ctx, ideasSQL)
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

func (db *SupabaseDB) CreateMatch(ctx context.Context, nm models.NewMatch) (*models.Match, error) {
	if err := nm.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()
	if _, err := db.pool.Exec(ctx, insertMatchSQL, matchArgs(id, nm, createdAt)...); err != nil {
		return nil, translatePgx(err, ErrMatchAlreadyExists)
	}
	return newMatchRecord(id, nm, createdAt), nil
}

func (db *SupabaseDB) queryMessages(ctx context.Context, q pgx.Tx, query string, arg any) ([]models.Message, error) {
	rows, err := q.Query(ctx, query, arg)
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

// queryMatches loads matches and their messages in one repeatable-read
// snapshot so a concurrent send can't be half-visible.
func (db *SupabaseDB) queryMatches(ctx context.Context, query string, args ...any) ([]*models.Match, error) {
	var matches []*models.Match

	err := pgx.BeginTxFunc(ctx, db.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to query matches: %w", err)
		}
		for rows.Next() {
			m, err := scanMatch(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan match: %w", err)
			}
			matches = append(matches, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(matches) == 0 {
			return nil
		}

		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		msgs, err := db.queryMessages(ctx, tx, messagesForMatchesSQL, ids)
		if err != nil {
			return err
		}
		attachMessages(matches, msgs)
		return nil
	})
	if err != nil {
		return nil, translatePgx(err, ErrConcurrentModification)
	}
	return matches, nil
}

func (db *SupabaseDB) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	matches, err := db.queryMatches(ctx, matchByIDSQL, id)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrMatchNotFound
	}
	return matches[0], nil
}

func (db *SupabaseDB) ListMatchesFor(ctx context.Context, userID string) ([]*models.Match, error) {
	matches, err := db.queryMatches(ctx, matchesForUserSQL, userID)
	if matches == nil && err == nil {
		matches = []*models.Match{}
	}
	return matches, err
}

func (db *SupabaseDB) FindSwipeMatch(ctx context.Context, userA, userB string) (*models.Match, error) {
	matches, err := db.queryMatches(ctx, swipeMatchSQL, userA, userB)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrMatchNotFound
	}
	return matches[0], nil
}

func (db *SupabaseDB) FindDateInterest(ctx context.Context, userID, dateIdeaID string) (*models.Match, error) {
	matches, err := db.queryMatches(ctx, dateInterestSQL, userID, dateIdeaID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrMatchNotFound
	}
	return matches[0], nil
}

func (db *SupabaseDB) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := db.pool.Exec(ctx, query, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		// the match was removed while the statement ran
		return ErrMatchNotFound
	}
	if err != nil {
		return translatePgx(err, ErrConcurrentModification)
	}
	if tag.RowsAffected() == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func (db *SupabaseDB) RemoveMatch(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		var authorID string
		err := tx.QueryRow(ctx, lockMatchSQL, id).Scan(&authorID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMatchNotFound
		}
		if err != nil {
			return translatePgx(err, ErrConcurrentModification)
		}

		if authorID != "" {
			var wrote bool
			if err := tx.QueryRow(ctx, authorWroteSQL, id, authorID).Scan(&wrote); err != nil {
				return fmt.Errorf("check author messages: %w", err)
			}
			if wrote {
				return ErrMatchEngaged
			}
		}

		if _, err := tx.Exec(ctx, deleteMatchSQL, id); err != nil {
			return translatePgx(err, ErrConcurrentModification)
		}
		return nil
	})
}

func (db *SupabaseDB) AppendMessage(ctx context.Context, matchID string, msg models.Message) error {
	return db.execOne(ctx, insertMessageSQL, msg.ID, matchID, msg.SenderID, msg.Text, msg.Timestamp)
}

func (db *SupabaseDB) ClearExpiry(ctx context.Context, id string) error {
	return db.execOne(ctx, clearExpirySQL, id)
}

func (db *SupabaseDB) Close() error {
	db.pool.Close()
	return nil
}
