package provider

import (
	"github.com/sealvault/sealvault-core"
	"github.com/sealvault/sealvault-core/assets"
)

// LoadInPageProviderScript returns the provider script to inject into dapp
// pages. The host names the global the provider object is exposed under and
// the host function the script forwards requests to; the default chain state
// is baked in so the provider can answer synchronous state reads before the
// first request round trip.
func LoadInPageProviderScript(rpcProviderName, requestHandlerName string) (string, error) {
	chain := sealvault.DefaultDappChain()
	replacements := map[string]string{
		sealvault.RPCProviderPlaceholder:           rpcProviderName,
		sealvault.RequestHandlerPlaceholder:        requestHandlerName,
		sealvault.DefaultChainIDPlaceholder:        chain.DisplayHex(),
		sealvault.DefaultNetworkVersionPlaceholder: chain.NetworkVersion(),
	}
	return assets.LoadWithReplacements(sealvault.InPageProviderAssetPath, replacements)
}
