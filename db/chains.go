package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sealvault/sealvault-core"
)

// ChainSettings are the per-chain values a user can change.
type ChainSettings struct {
	DefaultDappAllotment string `json:"default_dapp_allotment"`
}

// FetchOrCreateEthChain returns the entity id for an Ethereum chain,
// inserting the row with default user settings on first use.
func FetchOrCreateEthChain(ctx context.Context, q Querier, chain sealvault.ChainID) (string, error) {
	id, err := fetchEthChainID(ctx, q, chain)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	if !chain.Supported() {
		return "", fmt.Errorf("%w: %d", sealvault.ErrUnsupportedChain, chain)
	}
	settings, err := json.Marshal(ChainSettings{DefaultDappAllotment: chain.Config().DefaultDappAllotment})
	if err != nil {
		return "", sealvault.Fatalf("marshal chain settings: %v", err)
	}
	id = uuid.NewString()
	_, err = q.ExecContext(ctx,
		`INSERT OR IGNORE INTO chains (id, protocol, eth_chain_id, user_settings_json, created_at)
		 VALUES (?, 'eth', ?, ?, ?)`,
		id, uint64(chain), string(settings), nowString(),
	)
	if err != nil {
		return "", fmt.Errorf("create chain entity: %w", err)
	}
	// INSERT OR IGNORE may have lost a race with another writer.
	return fetchEthChainID(ctx, q, chain)
}

func fetchEthChainID(ctx context.Context, q Querier, chain sealvault.ChainID) (string, error) {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM chains WHERE protocol = 'eth' AND eth_chain_id = ?`, uint64(chain),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("chain %d: %w", chain, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("fetch chain entity: %w", err)
	}
	return id, nil
}

// FetchChainSettings returns the user settings for an Ethereum chain,
// creating the chain entity with defaults if it does not exist yet.
func FetchChainSettings(ctx context.Context, q Querier, chain sealvault.ChainID) (ChainSettings, error) {
	if _, err := FetchOrCreateEthChain(ctx, q, chain); err != nil {
		return ChainSettings{}, err
	}
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT user_settings_json FROM chains WHERE protocol = 'eth' AND eth_chain_id = ?`,
		uint64(chain),
	).Scan(&raw)
	if err != nil {
		return ChainSettings{}, fmt.Errorf("fetch chain settings: %w", err)
	}
	var settings ChainSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return ChainSettings{}, sealvault.Fatalf("corrupt chain settings for chain %d: %v", chain, err)
	}
	return settings, nil
}
