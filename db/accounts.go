package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sealvault/sealvault-core"
)

// Account groups keys, addresses and dapp sessions under one identity.
type Account struct {
	ID   string
	Name string
}

// CreateAccount inserts a new account and returns its id.
func CreateAccount(ctx context.Context, q Querier, name string) (string, error) {
	id := uuid.NewString()
	now := nowString()
	_, err := q.ExecContext(ctx,
		`INSERT INTO accounts (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, name, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	return id, nil
}

// FetchAccount returns the account with the given id.
func FetchAccount(ctx context.Context, q Querier, id string) (*Account, error) {
	var a Account
	err := q.QueryRowContext(ctx,
		`SELECT id, name FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}
	return &a, nil
}

// FetchActiveAccountID returns the account selected in local settings.
func FetchActiveAccountID(ctx context.Context, q Querier) (string, error) {
	var id sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT active_account_id FROM local_settings WHERE id = 'local'`,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sealvault.ErrNoActiveAccount
	}
	if err != nil {
		return "", fmt.Errorf("fetch active account: %w", err)
	}
	if !id.Valid || id.String == "" {
		return "", sealvault.ErrNoActiveAccount
	}
	return id.String, nil
}

// SetActiveAccountID records the account new requests resolve against.
func SetActiveAccountID(ctx context.Context, q Querier, accountID string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO local_settings (id, active_account_id) VALUES ('local', ?)
		 ON CONFLICT (id) DO UPDATE SET active_account_id = excluded.active_account_id`,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("set active account: %w", err)
	}
	return nil
}
