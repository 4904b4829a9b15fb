package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sealvault/sealvault-core"
)

// DappSession is a live connection between an account and a dapp. The bound
// address determines both the dapp key and the session's current chain.
type DappSession struct {
	ID         string
	AccountID  string
	DappID     string
	AddressID  string
	Address    string
	Chain      sealvault.ChainID
	LastUsedAt time.Time
}

// SessionParams identify the session to fetch or create. A zero Chain means
// the default dapp chain when a new session must be created.
type SessionParams struct {
	AccountID string
	DappID    string
	Chain     sealvault.ChainID
}

const sessionColumns = `
	SELECT s.id, s.account_id, s.dapp_id, s.address_id, a.address, c.eth_chain_id, s.last_used_at
	FROM local_dapp_sessions s
	JOIN addresses a ON a.id = s.address_id
	JOIN chains c ON c.id = a.chain_entity_id
`

func scanSession(row *sql.Row) (*DappSession, error) {
	var (
		s          DappSession
		ethChainID uint64
		lastUsed   string
	)
	err := row.Scan(&s.ID, &s.AccountID, &s.DappID, &s.AddressID, &s.Address, &ethChainID, &lastUsed)
	if err != nil {
		return nil, err
	}
	s.Chain, err = sealvault.ParseChainID(ethChainID)
	if err != nil {
		return nil, err
	}
	s.LastUsedAt, err = parseTime(lastUsed)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FetchSessionForDapp returns the session between an account and a dapp.
func FetchSessionForDapp(ctx context.Context, q Querier, accountID, dappID string) (*DappSession, error) {
	row := q.QueryRowContext(ctx,
		sessionColumns+` WHERE s.account_id = ? AND s.dapp_id = ?`,
		accountID, dappID,
	)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session for dapp %s: %w", dappID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	return s, nil
}

// CreateEthSessionIfNotExists returns the existing session or creates one
// from the account's dapp key. The dapp key must already exist; the address
// on the requested chain is created on demand, which covers dapps synced from
// another device that have keys but no local session yet.
func CreateEthSessionIfNotExists(ctx context.Context, q Querier, params SessionParams) (*DappSession, error) {
	existing, err := FetchSessionForDapp(ctx, q, params.AccountID, params.DappID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	chain := params.Chain
	if chain == 0 {
		chain = sealvault.DefaultDappChain()
	}
	var keyID string
	err = q.QueryRowContext(ctx,
		`SELECT id FROM asymmetric_keys WHERE account_id = ? AND dapp_id = ?`,
		params.AccountID, params.DappID,
	).Scan(&keyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dapp key for dapp %s: %w", params.DappID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch dapp key: %w", err)
	}
	addressID, err := FetchOrCreateAddressForEthChain(ctx, q, keyID, chain)
	if err != nil {
		return nil, err
	}

	now := nowString()
	_, err = q.ExecContext(ctx,
		`INSERT INTO local_dapp_sessions (id, account_id, dapp_id, address_id, created_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), params.AccountID, params.DappID, addressID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return FetchSessionForDapp(ctx, q, params.AccountID, params.DappID)
}

// UpdateSessionAddress rebinds the session to another address, which is how a
// chain switch takes effect.
func UpdateSessionAddress(ctx context.Context, q Querier, sessionID, addressID string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE local_dapp_sessions SET address_id = ? WHERE id = ?`,
		addressID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("update session address: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session address: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// UpdateSessionLastUsed records that the dapp connected again.
func UpdateSessionLastUsed(ctx context.Context, q Querier, sessionID string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE local_dapp_sessions SET last_used_at = ? WHERE id = ?`,
		nowString(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("update session last used: %w", err)
	}
	return nil
}
