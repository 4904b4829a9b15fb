package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/sealvault/sealvault-core"
)

func insertAddress(ctx context.Context, q Querier, keyID string, chain sealvault.ChainID, address string) (string, error) {
	chainEntityID, err := FetchOrCreateEthChain(ctx, q, chain)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = q.ExecContext(ctx,
		`INSERT INTO addresses (id, asymmetric_key_id, chain_entity_id, address, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, keyID, chainEntityID, address, nowString(),
	)
	if err != nil {
		return "", fmt.Errorf("store address: %w", err)
	}
	return id, nil
}

// FetchOrCreateAddressForEthChain returns the address entity binding a key to
// a chain, creating it on first use. The address string is recomputed from
// the stored public key, so no key material is unsealed.
func FetchOrCreateAddressForEthChain(ctx context.Context, q Querier, keyID string, chain sealvault.ChainID) (string, error) {
	chainEntityID, err := FetchOrCreateEthChain(ctx, q, chain)
	if err != nil {
		return "", err
	}
	var id string
	err = q.QueryRowContext(ctx,
		`SELECT id FROM addresses WHERE asymmetric_key_id = ? AND chain_entity_id = ?`,
		keyID, chainEntityID,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("fetch address: %w", err)
	}

	var publicKey []byte
	err = q.QueryRowContext(ctx,
		`SELECT public_key FROM asymmetric_keys WHERE id = ?`, keyID,
	).Scan(&publicKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("asymmetric key %s: %w", keyID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("fetch public key: %w", err)
	}
	pub, err := crypto.UnmarshalPubkey(publicKey)
	if err != nil {
		return "", sealvault.Fatalf("corrupt public key for key %s: %v", keyID, err)
	}
	address := crypto.PubkeyToAddress(*pub).Hex()
	return insertAddress(ctx, q, keyID, chain, address)
}

// FetchKeyIDForAddress returns the asymmetric key id behind an address.
func FetchKeyIDForAddress(ctx context.Context, q Querier, addressID string) (string, error) {
	var keyID string
	err := q.QueryRowContext(ctx,
		`SELECT asymmetric_key_id FROM addresses WHERE id = ?`, addressID,
	).Scan(&keyID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("address %s: %w", addressID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("fetch key for address: %w", err)
	}
	return keyID, nil
}

// FetchEthWalletAddressID returns the account's wallet address on a chain.
// Wallet keys are the rows with no dapp id.
func FetchEthWalletAddressID(ctx context.Context, q Querier, accountID string, chain sealvault.ChainID) (string, error) {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT a.id
		 FROM addresses a
		 JOIN asymmetric_keys k ON k.id = a.asymmetric_key_id
		 JOIN chains c ON c.id = a.chain_entity_id
		 WHERE k.account_id = ? AND k.dapp_id IS NULL AND c.eth_chain_id = ?`,
		accountID, uint64(chain),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("wallet address for chain %d: %w", chain, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("fetch wallet address: %w", err)
	}
	return id, nil
}

// FetchAddressString returns the checksummed address text for an address id.
func FetchAddressString(ctx context.Context, q Querier, addressID string) (string, error) {
	var address string
	err := q.QueryRowContext(ctx,
		`SELECT address FROM addresses WHERE id = ?`, addressID,
	).Scan(&address)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("address %s: %w", addressID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("fetch address: %w", err)
	}
	return address, nil
}
