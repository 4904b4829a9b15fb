// Package eth implements the Ethereum protocol layer of the wallet core:
// signing keys, transaction assembly and the JSON-RPC connection to remote
// chain nodes. Key material enters this package only as a transient
// SigningKey borrowed for one operation.
package eth

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sealvault/sealvault-core"
)

// SigningKey is a secp256k1 key bound to a chain. It is reconstructed from
// storage for the duration of one signing operation and never cached.
type SigningKey struct {
	ChainID sealvault.ChainID
	Address common.Address

	privateKey *ecdsa.PrivateKey
}

// NewSigningKey wraps an ECDSA private key for use on a chain.
func NewSigningKey(chainID sealvault.ChainID, privateKey *ecdsa.PrivateKey) *SigningKey {
	return &SigningKey{
		ChainID:    chainID,
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		privateKey: privateKey,
	}
}

// GenerateKey creates a new random signing key for a chain.
func GenerateKey(chainID sealvault.ChainID) (*SigningKey, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate secp256k1 key: %w", err)
	}
	return NewSigningKey(chainID, privateKey), nil
}

// SigningKeyFromBytes reconstructs a signing key from raw secret bytes.
func SigningKeyFromBytes(chainID sealvault.ChainID, secret []byte) (*SigningKey, error) {
	privateKey, err := crypto.ToECDSA(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid secret key bytes: %w", err)
	}
	return NewSigningKey(chainID, privateKey), nil
}

// SecretBytes returns the raw secret key bytes for sealing into storage.
func (k *SigningKey) SecretBytes() []byte {
	return crypto.FromECDSA(k.privateKey)
}

// PublicKeyBytes returns the uncompressed public key bytes.
func (k *SigningKey) PublicKeyBytes() []byte {
	return crypto.FromECDSAPub(&k.privateKey.PublicKey)
}

// CheckedAddress returns the EIP-55 checksummed address string stored in the
// database and shown to dapps.
func (k *SigningKey) CheckedAddress() string {
	return k.Address.Hex()
}

// PersonalSign signs a message per EIP-191 ("\x19Ethereum Signed Message:\n"
// prefix) and returns the 65-byte signature as a 0x hex string with V in
// {27, 28}.
func (k *SigningKey) PersonalSign(message []byte) (string, error) {
	hash := accounts.TextHash(message)
	signature, err := crypto.Sign(hash, k.privateKey)
	if err != nil {
		return "", fmt.Errorf("personal sign: %w", err)
	}
	// Transform V from 0/1 to 27/28 per Ethereum convention.
	signature[64] += 27
	return hexutil.Encode(signature), nil
}

// SignTx signs a transaction with the EIP-155 signer for the key's chain.
func (k *SigningKey) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signer := types.LatestSignerForChainID(new(big.Int).SetUint64(uint64(k.ChainID)))
	signed, err := types.SignTx(tx, signer, k.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}
