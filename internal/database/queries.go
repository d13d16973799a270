package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ammar1510/spark/internal/models"
)

// SQL shared by the lib/pq and pgx backends. Both speak $n placeholders.
const (
	userColumns = `id, name, email, password_hash, age, bio, images, interests, is_premium, created_at`

	insertUserSQL = `
		INSERT INTO users (id, name, email, password_hash, age, images, interests, created_at)
		VALUES ($1, $2, $3, $4, $5, '[]', '[]', $6)`
	userByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	userByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	usersExceptSQL = `SELECT ` + userColumns + ` FROM users WHERE id <> $1 ORDER BY name`
	updateUserSQL  = `
		UPDATE users SET
			name      = COALESCE($2, name),
			age       = COALESCE($3, age),
			bio       = COALESCE($4, bio),
			images    = COALESCE($5::jsonb, images),
			interests = COALESCE($6::jsonb, interests)
		WHERE id = $1
		RETURNING ` + userColumns
	setPremiumSQL = `UPDATE users SET is_premium = $2 WHERE id = $1 RETURNING ` + userColumns

	insertLikeSQL = `
		INSERT INTO likes (from_user_id, to_user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	reciprocalLikeSQL = `SELECT EXISTS (SELECT 1 FROM likes WHERE from_user_id = $1 AND to_user_id = $2)`

	ideaColumns   = `id, author_id, title, description, category, location, date, budget, dress_code, created_at`
	insertIdeaSQL = `
		INSERT INTO date_ideas (` + ideaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	ideaByIDSQL = `SELECT ` + ideaColumns + ` FROM date_ideas WHERE id = $1`
	ideasSQL    = `SELECT ` + ideaColumns + ` FROM date_ideas ORDER BY created_at DESC, id`

	matchColumns   = `id, user_a, user_b, interest_type, interest_expires_at, date_idea_id, date_author_id, created_at`
	insertMatchSQL = `
		INSERT INTO matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	matchByIDSQL      = `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	matchesForUserSQL = `
		SELECT ` + matchColumns + ` FROM matches
		WHERE user_a = $1 OR user_b = $1
		ORDER BY created_at DESC, id`
	swipeMatchSQL = `
		SELECT ` + matchColumns + ` FROM matches
		WHERE interest_type = 'swipe'
		  AND ((user_a = $1 AND user_b = $2) OR (user_a = $2 AND user_b = $1))`
	dateInterestSQL = `
		SELECT ` + matchColumns + ` FROM matches
		WHERE interest_type = 'date' AND date_idea_id = $2
		  AND date_author_id <> $1 AND (user_a = $1 OR user_b = $1)`
	lockMatchSQL   = `SELECT COALESCE(date_author_id, '') FROM matches WHERE id = $1 FOR UPDATE`
	authorWroteSQL = `SELECT EXISTS (SELECT 1 FROM messages WHERE match_id = $1 AND sender_id = $2)`
	deleteMatchSQL = `DELETE FROM matches WHERE id = $1`
	clearExpirySQL = `UPDATE matches SET interest_expires_at = NULL WHERE id = $1`

	messageColumns   = `id, match_id, sender_id, text, created_at`
	insertMessageSQL = `
		INSERT INTO messages (` + messageColumns + `)
		SELECT $1, $2, $3, $4, $5
		WHERE EXISTS (SELECT 1 FROM matches WHERE id = $2)`
	messagesForMatchSQL   = `SELECT ` + messageColumns + ` FROM messages WHERE match_id = $1 ORDER BY seq`
	messagesForMatchesSQL = `SELECT ` + messageColumns + ` FROM messages WHERE match_id = ANY($1) ORDER BY seq`
)

// Postgres error codes we translate
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgForeignKeyViolation  = "23503"
)

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var images, interests []byte

	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Age, &user.Bio,
		&images, &interests, &user.IsPremium, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalList(images, &user.Images); err != nil {
		return nil, fmt.Errorf("decode images for user %s: %w", user.ID, err)
	}
	if err := unmarshalList(interests, &user.Interests); err != nil {
		return nil, fmt.Errorf("decode interests for user %s: %w", user.ID, err)
	}
	return &user, nil
}

// profileArgs turns a partial update into nullable parameters for updateUserSQL
func profileArgs(id string, p models.ProfileUpdate) ([]any, error) {
	var name, bio, images, interests sql.NullString
	var age sql.NullInt64

	if p.Name != nil {
		name = sql.NullString{String: *p.Name, Valid: true}
	}
	if p.Age != nil {
		age = sql.NullInt64{Int64: int64(*p.Age), Valid: true}
	}
	if p.Bio != nil {
		bio = sql.NullString{String: *p.Bio, Valid: true}
	}
	if p.Images != nil {
		raw, err := json.Marshal(nonNil(*p.Images))
		if err != nil {
			return nil, fmt.Errorf("encode images: %w", err)
		}
		images = sql.NullString{String: string(raw), Valid: true}
	}
	if p.Interests != nil {
		raw, err := json.Marshal(nonNil(*p.Interests))
		if err != nil {
			return nil, fmt.Errorf("encode interests: %w", err)
		}
		interests = sql.NullString{String: string(raw), Valid: true}
	}
	return []any{id, name, age, bio, images, interests}, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func unmarshalList(raw []byte, dst *[]string) error {
	*dst = []string{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func scanIdea(row rowScanner) (*models.DateIdea, error) {
	var idea models.DateIdea
	var category string
	var date sql.NullTime

	err := row.Scan(
		&idea.ID, &idea.AuthorID, &idea.Title, &idea.Description, &category,
		&idea.Location, &date, &idea.Budget, &idea.DressCode, &idea.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	idea.Category = models.DateCategory(category)
	if date.Valid {
		t := date.Time
		idea.Date = &t
	}
	return &idea, nil
}

func ideaArgs(idea *models.DateIdea) []any {
	var date sql.NullTime
	if idea.Date != nil {
		date = sql.NullTime{Time: *idea.Date, Valid: true}
	}
	return []any{
		idea.ID, idea.AuthorID, idea.Title, idea.Description, string(idea.Category),
		idea.Location, date, idea.Budget, idea.DressCode, idea.CreatedAt,
	}
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var m models.Match
	var interestType string
	var expiresAt sql.NullTime
	var ideaID, authorID sql.NullString

	err := row.Scan(
		&m.ID, &m.Participants[0], &m.Participants[1], &interestType,
		&expiresAt, &ideaID, &authorID, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.InterestType = models.InterestType(interestType)
	if expiresAt.Valid {
		t := expiresAt.Time
		m.InterestExpiresAt = &t
	}
	m.DateIdeaID = ideaID.String
	m.DateAuthorID = authorID.String
	m.Messages = []models.Message{}
	return &m, nil
}

func matchArgs(id string, nm models.NewMatch, createdAt time.Time) []any {
	var expiresAt sql.NullTime
	if nm.InterestExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *nm.InterestExpiresAt, Valid: true}
	}
	return []any{
		id, nm.Participants[0], nm.Participants[1], string(nm.InterestType), expiresAt,
		nullString(nm.DateIdeaID), nullString(nm.DateAuthorID), createdAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func scanMessage(row rowScanner) (models.Message, error) {
	var msg models.Message
	err := row.Scan(&msg.ID, &msg.MatchID, &msg.SenderID, &msg.Text, &msg.Timestamp)
	return msg, err
}

func newMatchRecord(id string, nm models.NewMatch, createdAt time.Time) *models.Match {
	m := &models.Match{
		ID:           id,
		Participants: nm.Participants,
		Messages:     []models.Message{},
		InterestType: nm.InterestType,
		DateIdeaID:   nm.DateIdeaID,
		DateAuthorID: nm.DateAuthorID,
		CreatedAt:    createdAt,
	}
	if nm.InterestExpiresAt != nil {
		t := *nm.InterestExpiresAt
		m.InterestExpiresAt = &t
	}
	return m
}

// attachMessages distributes messages (ordered by seq) onto their matches
func attachMessages(matches []*models.Match, msgs []models.Message) {
	byID := make(map[string]*models.Match, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
	}
	for _, msg := range msgs {
		if m, ok := byID[msg.MatchID]; ok {
			m.Messages = append(m.Messages, msg)
		}
	}
}
