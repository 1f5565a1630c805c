package pgstore

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS actors (
	id            TEXT PRIMARY KEY,
	code          TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	first_name    TEXT NOT NULL DEFAULT '',
	last_name     TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL,
	active_case   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_actors_role ON actors (role);

CREATE TABLE IF NOT EXISTS tasks (
	id           BIGSERIAL PRIMARY KEY,
	requester_id TEXT NOT NULL REFERENCES actors (id),
	mediator_id  TEXT REFERENCES actors (id),
	location     TEXT NOT NULL,
	state        TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	claimed_at   TIMESTAMPTZ,
	resolved_at  TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	final_note   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_tasks_state ON tasks (state, id);
CREATE INDEX IF NOT EXISTS idx_tasks_requester ON tasks (requester_id);
CREATE INDEX IF NOT EXISTS idx_tasks_mediator ON tasks (mediator_id);
`

// Migrate creates the tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
