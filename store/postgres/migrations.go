package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Replay store (PostgreSQL).
var Migrations = migrate.NewGroup("replay")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_replay_accounts",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS replay_accounts (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL DEFAULT '',
    tier       TEXT NOT NULL DEFAULT 'standard',
    status     TEXT NOT NULL DEFAULT 'active',
    balance    BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    metadata   JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_replay_accounts_user ON replay_accounts (user_id);
CREATE INDEX IF NOT EXISTS idx_replay_accounts_tier_status ON replay_accounts (tier, status);
CREATE INDEX IF NOT EXISTS idx_replay_accounts_created ON replay_accounts (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS replay_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_replay_transactions",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS replay_transactions (
    id            TEXT PRIMARY KEY,
    account_id    TEXT NOT NULL DEFAULT '',
    user_id       TEXT NOT NULL DEFAULT '',
    delta         BIGINT NOT NULL DEFAULT 0,
    balance_after BIGINT NOT NULL DEFAULT 0,
    reason        TEXT NOT NULL DEFAULT '',
    fingerprint   TEXT NOT NULL DEFAULT '',
    timestamp     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    metadata      JSONB NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_replay_txns_user_ts ON replay_transactions (user_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_replay_txns_user_reason ON replay_transactions (user_id, reason, timestamp);
CREATE INDEX IF NOT EXISTS idx_replay_txns_timestamp ON replay_transactions (timestamp);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS replay_transactions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_replay_analyses",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS replay_analyses (
    key              TEXT PRIMARY KEY,
    analysis_id      TEXT NOT NULL DEFAULT '',
    content_id       TEXT NOT NULL DEFAULT '',
    platform         TEXT NOT NULL DEFAULT '',
    duration_seconds BIGINT NOT NULL DEFAULT 0,
    summary          TEXT NOT NULL DEFAULT '',
    highlights       JSONB NOT NULL DEFAULT '[]',
    cached_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_replay_analyses_cached ON replay_analyses (cached_at);
CREATE INDEX IF NOT EXISTS idx_replay_analyses_content ON replay_analyses (platform, content_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS replay_analyses`)
				return err
			},
		},
	)
}
