package postgres

import (
	"context"
	"fmt"
)

// schemaSQL is applied at startup. Statements are idempotent so restarts and
// multiple instances racing at boot are harmless.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS endpoints (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_endpoints_expires_at ON endpoints (expires_at);

CREATE TABLE IF NOT EXISTS webhook_requests (
	id              UUID PRIMARY KEY,
	endpoint_id     TEXT NOT NULL REFERENCES endpoints (id) ON DELETE CASCADE,
	method          TEXT NOT NULL,
	path            TEXT NOT NULL,
	query_string    TEXT,
	received_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	status_code     INTEGER NOT NULL,
	ip              TEXT NOT NULL DEFAULT '',
	headers         TEXT NOT NULL DEFAULT '{}',
	content_type    TEXT NOT NULL,
	body_size_bytes INTEGER NOT NULL,
	raw_body        TEXT NOT NULL DEFAULT '',
	parsed_json     TEXT
);

CREATE INDEX IF NOT EXISTS idx_webhook_requests_page
	ON webhook_requests (endpoint_id, received_at DESC, id DESC);

CREATE INDEX IF NOT EXISTS idx_webhook_requests_received_at
	ON webhook_requests (received_at);
`

// Bootstrap creates the schema if it does not exist yet.
func Bootstrap(ctx context.Context, pool Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("bootstrapping schema: %w", err)
	}
	return nil
}
