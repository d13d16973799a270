package database

// schema is applied at startup by both SQL backends. Every statement is
// idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	age           INTEGER NOT NULL DEFAULT 18,
	bio           TEXT NOT NULL DEFAULT '',
	images        JSONB NOT NULL DEFAULT '[]',
	interests     JSONB NOT NULL DEFAULT '[]',
	is_premium    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (LOWER(email));

CREATE TABLE IF NOT EXISTS likes (
	from_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	to_user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (from_user_id, to_user_id)
);

CREATE TABLE IF NOT EXISTS date_ideas (
	id          TEXT PRIMARY KEY,
	author_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	category    TEXT NOT NULL,
	location    TEXT NOT NULL DEFAULT '',
	date        TIMESTAMPTZ,
	budget      TEXT NOT NULL DEFAULT '',
	dress_code  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_date_ideas_created ON date_ideas (created_at DESC);

CREATE TABLE IF NOT EXISTS matches (
	id                  TEXT PRIMARY KEY,
	user_a              TEXT NOT NULL,
	user_b              TEXT NOT NULL,
	interest_type       TEXT NOT NULL CHECK (interest_type IN ('swipe', 'date')),
	interest_expires_at TIMESTAMPTZ,
	date_idea_id        TEXT,
	date_author_id      TEXT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (user_a <> user_b),
	CHECK (interest_type = 'date' OR (interest_expires_at IS NULL AND date_idea_id IS NULL AND date_author_id IS NULL)),
	CHECK (interest_type = 'swipe' OR date_author_id IN (user_a, user_b))
);
CREATE INDEX IF NOT EXISTS idx_matches_user_a ON matches (user_a);
CREATE INDEX IF NOT EXISTS idx_matches_user_b ON matches (user_b);
CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_swipe_pair
	ON matches (LEAST(user_a, user_b), GREATEST(user_a, user_b))
	WHERE interest_type = 'swipe';
CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_date_interest
	ON matches (date_idea_id, LEAST(user_a, user_b), GREATEST(user_a, user_b))
	WHERE interest_type = 'date';

CREATE TABLE IF NOT EXISTS messages (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	match_id   TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
	sender_id  TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_match ON messages (match_id, seq);
`
