package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaVersion is bumped together with additions to schema. Migrations are
// additive; statements use IF NOT EXISTS so reruns are no-ops.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS migrations (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

-- Single row table keyed by the literal 'local'.
CREATE TABLE IF NOT EXISTS local_settings (
    id TEXT PRIMARY KEY CHECK (id = 'local'),
    active_account_id TEXT REFERENCES accounts (id)
);

CREATE TABLE IF NOT EXISTS chains (
    id TEXT PRIMARY KEY,
    protocol TEXT NOT NULL CHECK (protocol = 'eth'),
    eth_chain_id INTEGER NOT NULL UNIQUE,
    user_settings_json TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS data_encryption_keys (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    kek_name TEXT NOT NULL,
    sealed_key BLOB NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dapps (
    id TEXT PRIMARY KEY,
    identifier TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL
);

-- dapp_id NULL marks an account's wallet key.
CREATE TABLE IF NOT EXISTS asymmetric_keys (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts (id),
    dek_id TEXT NOT NULL REFERENCES data_encryption_keys (id),
    dapp_id TEXT REFERENCES dapps (id),
    elliptic_curve TEXT NOT NULL CHECK (elliptic_curve = 'secp256k1'),
    public_key BLOB NOT NULL,
    sealed_secret_key BLOB NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS asymmetric_keys_account_dapp_idx
    ON asymmetric_keys (account_id, dapp_id);

CREATE TABLE IF NOT EXISTS addresses (
    id TEXT PRIMARY KEY,
    asymmetric_key_id TEXT NOT NULL REFERENCES asymmetric_keys (id),
    chain_entity_id TEXT NOT NULL REFERENCES chains (id),
    address TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (asymmetric_key_id, chain_entity_id)
);

CREATE TABLE IF NOT EXISTS local_dapp_sessions (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts (id),
    dapp_id TEXT NOT NULL REFERENCES dapps (id),
    address_id TEXT NOT NULL REFERENCES addresses (id),
    created_at TEXT NOT NULL,
    last_used_at TEXT NOT NULL,
    UNIQUE (account_id, dapp_id)
);
`

func migrate(ctx context.Context, handle *sql.DB) error {
	tx, err := handle.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO migrations (version, applied_at) VALUES (?, ?)`,
		schemaVersion, nowString(),
	)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
