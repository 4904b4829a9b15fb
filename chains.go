// Package sealvault holds the wallet core's shared domain types: the closed
// registry of supported chains, the error model of the in-page provider
// bridge, and process-wide configuration. Subpackages build on these types to
// implement the bridge itself (provider), persistence (db), key handling
// (keychain, encryption, eth) and the embedding surface (app).
//
// The wallet adds chains by shipping a new release, never at runtime, so the
// registry below is a closed enumeration. Chain ids outside it are rejected
// at the trust boundary.
package sealvault

import (
	"fmt"
	"sort"
)

// ChainID identifies a supported EVM chain by its EIP-155 chain id.
type ChainID uint64

const (
	// EthereumMainnet is Ethereum mainnet.
	EthereumMainnet ChainID = 1
	// EthereumGoerli is the Goerli testnet.
	EthereumGoerli ChainID = 5
	// PolygonMainnet is Polygon PoS mainnet.
	PolygonMainnet ChainID = 137
	// PolygonMumbai is the Polygon Mumbai testnet.
	PolygonMumbai ChainID = 80001
)

// ChainConfig contains chain-specific defaults: display metadata, the remote
// JSON-RPC endpoint and the native token allotment transferred to a newly
// approved dapp's address.
type ChainConfig struct {
	// DisplayName is the chain name shown in approval and settings UIs.
	DisplayName string

	// NativeTokenSymbol is the ticker of the chain's native token.
	NativeTokenSymbol string

	// RPCEndpoint is the default HTTP JSON-RPC endpoint for the chain.
	RPCEndpoint string

	// DefaultDappAllotment is the native token amount transferred from the
	// account wallet to a new dapp address after approval, as a decimal
	// string (e.g. "0.1" = 0.1 MATIC).
	DefaultDappAllotment string
}

// Mainnet chain configurations
var (
	// EthereumMainnetConfig is the configuration for Ethereum mainnet.
	EthereumMainnetConfig = ChainConfig{
		DisplayName:          "Ethereum",
		NativeTokenSymbol:    "ETH",
		RPCEndpoint:          "https://rpc.ankr.com/eth",
		DefaultDappAllotment: "0.01",
	}

	// PolygonMainnetConfig is the configuration for Polygon PoS mainnet.
	PolygonMainnetConfig = ChainConfig{
		DisplayName:          "Polygon PoS",
		NativeTokenSymbol:    "MATIC",
		RPCEndpoint:          "https://rpc.ankr.com/polygon",
		DefaultDappAllotment: "0.1",
	}
)

// Testnet chain configurations
var (
	// EthereumGoerliConfig is the configuration for the Goerli testnet.
	EthereumGoerliConfig = ChainConfig{
		DisplayName:          "Ethereum Goerli",
		NativeTokenSymbol:    "ETH",
		RPCEndpoint:          "https://rpc.ankr.com/eth_goerli",
		DefaultDappAllotment: "0.1",
	}

	// PolygonMumbaiConfig is the configuration for the Polygon Mumbai testnet.
	PolygonMumbaiConfig = ChainConfig{
		DisplayName:          "Polygon Mumbai",
		NativeTokenSymbol:    "MATIC",
		RPCEndpoint:          "https://rpc.ankr.com/polygon_mumbai",
		DefaultDappAllotment: "1",
	}
)

var chainConfigs = map[ChainID]ChainConfig{
	EthereumMainnet: EthereumMainnetConfig,
	EthereumGoerli:  EthereumGoerliConfig,
	PolygonMainnet:  PolygonMainnetConfig,
	PolygonMumbai:   PolygonMumbaiConfig,
}

// DefaultDappChain returns the chain new dapp keys are created on. Dapp
// sessions start here and move with wallet_switchEthereumChain.
func DefaultDappChain() ChainID {
	return PolygonMainnet
}

// SupportedChains returns every supported chain id in ascending order.
func SupportedChains() []ChainID {
	chains := make([]ChainID, 0, len(chainConfigs))
	for id := range chainConfigs {
		chains = append(chains, id)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	return chains
}

// ParseChainID validates a raw numeric chain id against the supported set.
func ParseChainID(id uint64) (ChainID, error) {
	chainID := ChainID(id)
	if _, ok := chainConfigs[chainID]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedChain, id)
	}
	return chainID, nil
}

// Supported reports whether the chain id is in the supported set.
func (c ChainID) Supported() bool {
	_, ok := chainConfigs[c]
	return ok
}

// Config returns the chain's configuration. Unsupported ids return the zero
// value; callers validate ids with ParseChainID before use.
func (c ChainID) Config() ChainConfig {
	return chainConfigs[c]
}

// DisplayHex returns the chain id as a 0x-prefixed hexadecimal string, the
// format EIP-695 eth_chainId and EIP-1193 chainChanged events use.
func (c ChainID) DisplayHex() string {
	return fmt.Sprintf("0x%x", uint64(c))
}

// NetworkVersion returns the chain id as a decimal string, the format the
// legacy net_version method and networkChanged events use.
func (c ChainID) NetworkVersion() string {
	return fmt.Sprintf("%d", uint64(c))
}

// DisplayName returns the chain name shown to users.
func (c ChainID) DisplayName() string {
	return chainConfigs[c].DisplayName
}

func (c ChainID) String() string {
	if cfg, ok := chainConfigs[c]; ok {
		return cfg.DisplayName
	}
	return fmt.Sprintf("unsupported chain %d", uint64(c))
}
