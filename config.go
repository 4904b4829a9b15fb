package sealvault

import (
	"fmt"
	"time"
)

// ClientVersion is the fixed identifier returned by web3_clientVersion.
const ClientVersion = "SealVault"

// Placeholders replaced in the embedded in-page provider script when it is
// loaded for injection.
const (
	RPCProviderPlaceholder           = "<SEALVAULT_RPC_PROVIDER>"
	RequestHandlerPlaceholder        = "<SEALVAULT_REQUEST_HANDLER>"
	DefaultChainIDPlaceholder        = "<SEALVAULT_DEFAULT_CHAIN_ID>"
	DefaultNetworkVersionPlaceholder = "<SEALVAULT_DEFAULT_NETWORK_VERSION>"
)

// InPageProviderAssetPath is the embedded path of the in-page provider script
// template.
const InPageProviderAssetPath = "js/in-page-provider.js"

// Config holds process-wide settings for the wallet core. The zero value is
// not usable; start from DefaultConfig.
type Config struct {
	// MaxRequestBytes is the in-page request size ceiling. Larger payloads
	// are rejected before parsing.
	MaxRequestBytes int

	// MaxResponseBytes bounds serialized responses on the way out.
	MaxResponseBytes int

	// MaxFaviconBytes bounds favicon downloads during dapp approval.
	MaxFaviconBytes int64

	// FaviconTimeout bounds the favicon fetch during dapp approval.
	FaviconTimeout time.Duration

	// RPCTimeout bounds a single remote JSON-RPC call to a chain endpoint.
	RPCTimeout time.Duration

	// MaxConcurrentTokenTransfers bounds background native token transfers
	// started after dapp approvals.
	MaxConcurrentTokenTransfers int64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRequestBytes:             1 << 20,
		MaxResponseBytes:            4 << 20,
		MaxFaviconBytes:             1 << 20,
		FaviconTimeout:              10 * time.Second,
		RPCTimeout:                  30 * time.Second,
		MaxConcurrentTokenTransfers: 4,
	}
}

// Validate checks that all settings are positive.
func (c Config) Validate() error {
	if c.MaxRequestBytes <= 0 {
		return fmt.Errorf("maxRequestBytes: must be positive")
	}
	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("maxResponseBytes: must be positive")
	}
	if c.MaxFaviconBytes <= 0 {
		return fmt.Errorf("maxFaviconBytes: must be positive")
	}
	if c.FaviconTimeout <= 0 {
		return fmt.Errorf("faviconTimeout: must be positive")
	}
	if c.RPCTimeout <= 0 {
		return fmt.Errorf("rpcTimeout: must be positive")
	}
	if c.MaxConcurrentTokenTransfers <= 0 {
		return fmt.Errorf("maxConcurrentTokenTransfers: must be positive")
	}
	return nil
}
