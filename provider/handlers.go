package provider

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sealvault/sealvault-core"
	"github.com/sealvault/sealvault-core/db"
	"github.com/sealvault/sealvault-core/eth"
)

// AddEthereumChainParameter is the EIP-3085 request param. Only the chain id
// matters here since chains outside the supported set cannot be added.
type AddEthereumChainParameter struct {
	ChainID string `json:"chainId"`
}

// SwitchEthereumChainParameter is the EIP-3326 request param.
type SwitchEthereumChainParameter struct {
	ChainID string `json:"chainId"`
}

// ethRequestAccounts handles eth_requestAccounts and eth_accounts. Both run
// the approval flow when the dapp has not been added yet, so eth_accounts
// polling by dapps cannot observe a half-connected state.
func (p *Provider) ethRequestAccounts(ctx context.Context, session *db.DappSession) (any, error) {
	if session == nil {
		var err error
		session, err = p.approveNewDapp(ctx)
		if err != nil {
			return nil, err
		}
	}

	if err := db.UpdateSessionLastUsed(ctx, p.pool.Conn(), session.ID); err != nil {
		return nil, err
	}
	if err := p.notifyConnect(session); err != nil {
		return nil, err
	}
	return []string{session.Address}, nil
}

// ethChainID returns the session's chain id in EIP-695 hex form.
func (p *Provider) ethChainID(session *db.DappSession) (any, error) {
	return session.Chain.DisplayHex(), nil
}

// ethSendTransaction signs and broadcasts a transaction with the session's
// dapp key.
func (p *Provider) ethSendTransaction(ctx context.Context, params json.RawMessage, session *db.DappSession) (any, error) {
	var args eth.TransactionArgs
	if err := oneParam(params, &args); err != nil {
		return nil, err
	}
	// Drop any dapp-supplied nonce and fill the current one from the remote
	// node at signing time. MetaMask does this too.
	args.ClearNonce()

	key, err := p.fetchEthSigningKey(ctx, session)
	if err != nil {
		return nil, err
	}
	chainProvider := p.rpc.Provider(key.ChainID)
	hash, err := chainProvider.SendTransaction(ctx, key, args)
	if err != nil {
		return nil, err
	}
	return hash.Hex(), nil
}

// personalSign signs a message per EIP-191 with the session's dapp key. The
// params order is message first, then address, the reverse of eth_sign.
func (p *Provider) personalSign(ctx context.Context, params json.RawMessage, session *db.DappSession) (any, error) {
	reader, err := newParamsReader(params)
	if err != nil {
		return nil, err
	}
	var messageHex string
	if err := reader.next(&messageHex); err != nil {
		return nil, err
	}
	message, err := decode0xHex(messageHex)
	if err != nil {
		return nil, err
	}

	var addressArg string
	if err := reader.next(&addressArg); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(addressArg) {
		return nil, sealvault.NewRPCError(sealvault.InvalidParams)
	}
	// Compared as parsed addresses so checksum and lowercase forms of the
	// session address are both accepted.
	if common.HexToAddress(addressArg) != common.HexToAddress(session.Address) {
		return nil, sealvault.RPCErrorf(sealvault.InvalidParams, "Invalid address")
	}

	// Some dapps pass a password argument from the deprecated Parity API.
	// It is ignored, but a present value must at least be a string.
	var password string
	if err := reader.optionalNext(&password); err != nil {
		return nil, err
	}

	key, err := p.fetchEthSigningKey(ctx, session)
	if err != nil {
		return nil, err
	}
	return key.PersonalSign(message)
}

// walletAddEthereumChain accepts EIP-3085 requests for chains the wallet
// already supports. Chains outside the supported set cannot be added, so a
// parseable supported chain id means the chain is "added" and anything else
// is an invalid param.
func (p *Provider) walletAddEthereumChain(params json.RawMessage) (any, error) {
	var param AddEthereumChainParameter
	if err := firstParam(params, &param); err != nil {
		return nil, err
	}
	if _, err := parse0xChainID(param.ChainID); err != nil {
		return nil, err
	}
	// Null result on success per EIP-3085.
	return nil, nil
}

// walletSwitchEthereumChain moves the session to another supported chain.
// The dapp key stays the same; an address entity for the key on the new
// chain is created on first switch.
func (p *Provider) walletSwitchEthereumChain(ctx context.Context, params json.RawMessage, session *db.DappSession) (any, error) {
	var param SwitchEthereumChainParameter
	if err := firstParam(params, &param); err != nil {
		return nil, err
	}
	newChain, err := parse0xChainID(param.ChainID)
	if err != nil {
		return nil, err
	}

	err = p.pool.DeferredTransaction(ctx, func(tx *sql.Tx) error {
		keyID, err := db.FetchKeyIDForAddress(ctx, tx, session.AddressID)
		if err != nil {
			return err
		}
		newAddressID, err := db.FetchOrCreateAddressForEthChain(ctx, tx, keyID, newChain)
		if err != nil {
			return err
		}
		return db.UpdateSessionAddress(ctx, tx, session.ID, newAddressID)
	})
	if err != nil {
		return nil, err
	}

	if err := p.notifyChainChanged(newChain); err != nil {
		return nil, err
	}
	// Null result on success per EIP-3326.
	return nil, nil
}

func (p *Provider) web3ClientVersion() (any, error) {
	return sealvault.ClientVersion, nil
}

// web3SHA3 hashes the 0x hex param with Keccak-256.
func (p *Provider) web3SHA3(params json.RawMessage) (any, error) {
	reader, err := newParamsReader(params)
	if err != nil {
		return nil, err
	}
	var messageHex string
	if err := reader.next(&messageHex); err != nil {
		return nil, err
	}
	message, err := decode0xHex(messageHex)
	if err != nil {
		return nil, err
	}
	return hexutil.Encode(crypto.Keccak256(message)), nil
}
