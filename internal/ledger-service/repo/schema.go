package repo

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              UUID PRIMARY KEY,
	email           TEXT NOT NULL UNIQUE,
	full_name       TEXT NOT NULL DEFAULT '',
	hashed_password TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bets (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users(id),
	event_date DATE NOT NULL,
	type       TEXT NOT NULL,
	detail     TEXT NOT NULL,
	stake      DOUBLE PRECISION NOT NULL,
	odds       DOUBLE PRECISION NOT NULL,
	cashout    DOUBLE PRECISION,
	outcome    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_bets_user_event_date ON bets (user_id, event_date);
CREATE INDEX IF NOT EXISTS idx_bets_user_updated_at ON bets (user_id, updated_at);

CREATE TABLE IF NOT EXISTS parlay_legs (
	id         UUID PRIMARY KEY,
	bet_id     UUID NOT NULL REFERENCES bets(id),
	detail     TEXT NOT NULL,
	odds       DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_parlay_legs_bet ON parlay_legs (bet_id);

CREATE TABLE IF NOT EXISTS audit_log (
	id          BIGSERIAL PRIMARY KEY,
	bet_id      UUID NOT NULL,
	user_id     UUID NOT NULL,
	action      TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates the tables on first run.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
