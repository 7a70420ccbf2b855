package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema holds the DDL for all tables the engine owns. Statements are
// idempotent so Migrate can run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS domains (
	id             UUID PRIMARY KEY,
	campaign_id    UUID NOT NULL,
	url            TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	pages_found    INT NOT NULL DEFAULT 0,
	sitemaps_found INT NOT NULL DEFAULT 0,
	forms_found    INT NOT NULL DEFAULT 0,
	technology     JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_domains_campaign ON domains (campaign_id);
CREATE INDEX IF NOT EXISTS idx_domains_status ON domains (status);

CREATE TABLE IF NOT EXISTS tasks (
	id            UUID PRIMARY KEY,
	campaign_id   UUID NOT NULL,
	domain_id     UUID NOT NULL REFERENCES domains (id) ON DELETE CASCADE,
	task_type     TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	priority      INT NOT NULL DEFAULT 50,
	attempt       INT NOT NULL DEFAULT 0,
	max_attempts  INT NOT NULL DEFAULT 3,
	error_message TEXT,
	payload       JSONB NOT NULL DEFAULT '{}',
	result        JSONB NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	started_at    TIMESTAMPTZ,
	completed_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_tasks_claim
	ON tasks (status, priority DESC, created_at ASC);
CREATE INDEX IF NOT EXISTS idx_tasks_domain ON tasks (domain_id);

CREATE TABLE IF NOT EXISTS pages (
	id           UUID PRIMARY KEY,
	domain_id    UUID NOT NULL REFERENCES domains (id) ON DELETE CASCADE,
	url          TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	has_form     BOOLEAN NOT NULL DEFAULT FALSE,
	has_comments BOOLEAN NOT NULL DEFAULT FALSE,
	metadata     JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_pages_domain ON pages (domain_id);

CREATE TABLE IF NOT EXISTS submission_records (
	key           TEXT PRIMARY KEY,
	campaign_id   UUID NOT NULL,
	attempt_count INT NOT NULL DEFAULT 0,
	last_status   TEXT NOT NULL DEFAULT '',
	first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_seen_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS submission_logs (
	id          UUID PRIMARY KEY,
	campaign_id UUID NOT NULL,
	domain_id   UUID NOT NULL,
	task_id     UUID NOT NULL,
	target_url  TEXT NOT NULL,
	status      TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	detail      JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_submission_logs_campaign
	ON submission_logs (campaign_id, created_at DESC);
`

// Migrate applies the schema. Safe to run repeatedly.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
