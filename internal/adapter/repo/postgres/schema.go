package postgres

import (
	"context"
	"fmt"
)

// schema is applied at startup. Statements are idempotent so repeated
// boots against the same database are safe.
const schema = `
CREATE TABLE IF NOT EXISTS universities (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	city          TEXT NOT NULL DEFAULT '',
	state         TEXT NOT NULL DEFAULT '',
	country       TEXT NOT NULL DEFAULT '',
	courses       JSONB NOT NULL DEFAULT '[]',
	placement_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_salary    DOUBLE PRECISION NOT NULL DEFAULT 0,
	ranking       INTEGER NOT NULL DEFAULT 0,
	utype         TEXT NOT NULL DEFAULT '',
	key_features  JSONB NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	UNIQUE (name, country)
);

CREATE INDEX IF NOT EXISTS idx_universities_country ON universities (country);
CREATE INDEX IF NOT EXISTS idx_universities_courses ON universities USING GIN (courses);

CREATE TABLE IF NOT EXISTS recommendations (
	id             UUID PRIMARY KEY,
	user_id        TEXT NOT NULL,
	profile        JSONB NOT NULL,
	university_ids JSONB NOT NULL DEFAULT '[]',
	ai_note        TEXT NOT NULL DEFAULT '',
	model_meta     JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recommendations_user ON recommendations (user_id, created_at);
`

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool PgxPool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("op=schema.ensure: %w", err)
	}
	return nil
}
