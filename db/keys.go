package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sealvault/sealvault-core"
	"github.com/sealvault/sealvault-core/encryption"
	"github.com/sealvault/sealvault-core/eth"
	"github.com/sealvault/sealvault-core/keychain"
)

// SKDataEncryptionKeyName names the data encryption key for secret keys. The
// DEK itself is stored sealed with the keychain key encryption key, so key
// material is recoverable only with both the database and the keychain.
const SKDataEncryptionKeyName = "sk-dek"

// EnsureSKDataEncryptionKey returns the id of the secret key DEK, generating
// and storing it on first call. The key encryption key must already be in the
// keychain.
func EnsureSKDataEncryptionKey(ctx context.Context, q Querier, kc keychain.Keychain) (string, error) {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM data_encryption_keys WHERE name = ?`, SKDataEncryptionKeyName,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("fetch data encryption key: %w", err)
	}

	kek, err := fetchKeyEncryptionKey(kc)
	if err != nil {
		return "", err
	}
	dek, err := encryption.NewKey()
	if err != nil {
		return "", err
	}
	sealed, err := kek.Seal(dek, []byte(SKDataEncryptionKeyName))
	if err != nil {
		return "", err
	}
	id = uuid.NewString()
	_, err = q.ExecContext(ctx,
		`INSERT INTO data_encryption_keys (id, name, kek_name, sealed_key, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, SKDataEncryptionKeyName, keychain.SKKeyEncryptionKeyName, sealed, nowString(),
	)
	if err != nil {
		return "", fmt.Errorf("store data encryption key: %w", err)
	}
	return id, nil
}

func fetchKeyEncryptionKey(kc keychain.Keychain) (encryption.Key, error) {
	material, err := kc.Get(keychain.SKKeyEncryptionKeyName)
	if err != nil {
		return nil, fmt.Errorf("fetch key encryption key: %w", err)
	}
	return encryption.FromBytes(material)
}

func fetchSKDataEncryptionKey(ctx context.Context, q Querier, kc keychain.Keychain) (string, encryption.Key, error) {
	var (
		id      string
		kekName string
		sealed  []byte
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, kek_name, sealed_key FROM data_encryption_keys WHERE name = ?`,
		SKDataEncryptionKeyName,
	).Scan(&id, &kekName, &sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, fmt.Errorf("data encryption key %q: %w", SKDataEncryptionKeyName, ErrNotFound)
	}
	if err != nil {
		return "", nil, fmt.Errorf("fetch data encryption key: %w", err)
	}
	material, err := kc.Get(kekName)
	if err != nil {
		return "", nil, fmt.Errorf("fetch key encryption key: %w", err)
	}
	kek, err := encryption.FromBytes(material)
	if err != nil {
		return "", nil, err
	}
	dek, err := kek.Open(sealed, []byte(SKDataEncryptionKeyName))
	if err != nil {
		return "", nil, err
	}
	key, err := encryption.FromBytes(dek)
	if err != nil {
		return "", nil, err
	}
	return id, key, nil
}

// NewKeyParams describe a signing key to store. DappID empty means the key is
// the account's wallet key.
type NewKeyParams struct {
	AccountID string
	DappID    string
	Key       *eth.SigningKey
}

// InsertEthKey seals the signing key with the secret key DEK and stores it
// along with its address on the key's chain. Returns the key and address ids.
func InsertEthKey(ctx context.Context, q Querier, kc keychain.Keychain, params NewKeyParams) (string, string, error) {
	dekID, dek, err := fetchSKDataEncryptionKey(ctx, q, kc)
	if err != nil {
		return "", "", err
	}

	keyID := uuid.NewString()
	sealed, err := dek.Seal(params.Key.SecretBytes(), []byte(keyID))
	if err != nil {
		return "", "", err
	}
	var dappID any
	if params.DappID != "" {
		dappID = params.DappID
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO asymmetric_keys
		     (id, account_id, dek_id, dapp_id, elliptic_curve, public_key, sealed_secret_key, created_at)
		 VALUES (?, ?, ?, ?, 'secp256k1', ?, ?, ?)`,
		keyID, params.AccountID, dekID, dappID, params.Key.PublicKeyBytes(), sealed, nowString(),
	)
	if err != nil {
		return "", "", fmt.Errorf("store asymmetric key: %w", err)
	}

	addressID, err := insertAddress(ctx, q, keyID, params.Key.ChainID, params.Key.CheckedAddress())
	if err != nil {
		return "", "", err
	}
	return keyID, addressID, nil
}

// FetchEthSigningKey loads and unseals the signing key behind an address.
// The key is bound to the address's chain for transaction signing.
func FetchEthSigningKey(ctx context.Context, q Querier, kc keychain.Keychain, addressID string) (*eth.SigningKey, error) {
	var (
		keyID      string
		sealed     []byte
		ethChainID uint64
		address    string
	)
	err := q.QueryRowContext(ctx,
		`SELECT k.id, k.sealed_secret_key, c.eth_chain_id, a.address
		 FROM addresses a
		 JOIN asymmetric_keys k ON k.id = a.asymmetric_key_id
		 JOIN chains c ON c.id = a.chain_entity_id
		 WHERE a.id = ?`,
		addressID,
	).Scan(&keyID, &sealed, &ethChainID, &address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("address %s: %w", addressID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch signing key: %w", err)
	}

	_, dek, err := fetchSKDataEncryptionKey(ctx, q, kc)
	if err != nil {
		return nil, err
	}
	secret, err := dek.Open(sealed, []byte(keyID))
	if err != nil {
		return nil, err
	}
	chain, err := sealvault.ParseChainID(ethChainID)
	if err != nil {
		return nil, err
	}
	key, err := eth.SigningKeyFromBytes(chain, secret)
	if err != nil {
		return nil, err
	}
	if key.CheckedAddress() != address {
		return nil, sealvault.Fatalf("key material does not match stored address %s", addressID)
	}
	return key, nil
}
