package provider

import (
	"context"
	"encoding/json"

	"github.com/sealvault/sealvault-core"
	"github.com/sealvault/sealvault-core/db"
)

// proxiedRPCMethods are the read-only methods forwarded verbatim to the
// session chain's remote API. The set is closed on purpose: a method not
// handled by the bridge and not listed here is rejected, never forwarded,
// so new node methods stay walled off until reviewed.
var proxiedRPCMethods = newStringSet(
	"net_listening",
	"net_peerCount",
	"net_version",
	"eth_blockNumber",
	"eth_call",
	"eth_chainId",
	"eth_estimateGas",
	"eth_gasPrice",
	"eth_getBalance",
	"eth_getBlockByHash",
	"eth_getBlockByNumber",
	"eth_getBlockTransactionCountByHash",
	"eth_getBlockTransactionCountByNumber",
	"eth_getCode",
	"eth_getFilterChanges",
	"eth_getFilterLogs",
	"eth_getRawTransactionByHash",
	"eth_getRawTransactionByBlockHashAndIndex",
	"eth_getRawTransactionByBlockNumberAndIndex",
	"eth_getLogs",
	"eth_getStorageAt",
	"eth_getTransactionByBlockHashAndIndex",
	"eth_getTransactionByBlockNumberAndIndex",
	"eth_getTransactionByHash",
	"eth_getTransactionCount",
	"eth_getTransactionReceipt",
	"eth_getUncleByBlockHashAndIndex",
	"eth_getUncleByBlockNumberAndIndex",
	"eth_getUncleCountByBlockHash",
	"eth_getUncleCountByBlockNumber",
	"eth_getProof",
	"eth_newBlockFilter",
	"eth_newFilter",
	"eth_newPendingTransactionFilter",
	"eth_protocolVersion",
	"eth_sendRawTransaction",
	"eth_syncing",
	"eth_uninstallFilter",
)

func newStringSet(items ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// proxyMethod forwards an allow-listed method to the session chain's API
// provider and returns its raw result. Unsupported methods must return the
// EIP-1193 4200 code so dapps can feature-detect.
func (p *Provider) proxyMethod(ctx context.Context, method string, params json.RawMessage, session *db.DappSession) (any, error) {
	if _, ok := proxiedRPCMethods[method]; !ok {
		return nil, sealvault.RPCErrorf(sealvault.UnsupportedMethod,
			"This method is not supported: '%s'", method)
	}
	chainProvider := p.rpc.Provider(session.Chain)
	result, err := chainProvider.ProxyRequest(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return result, nil
}
