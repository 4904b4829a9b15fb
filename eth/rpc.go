package eth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/sealvault/sealvault-core"
)

// transferGasLimit is the fixed gas cost of a native token transfer.
const transferGasLimit = 21000

// ChainProvider is the remote API of one chain. Handlers borrow a signing
// key and hand it to the provider for the duration of one call.
type ChainProvider interface {
	// ProxyRequest forwards an allow-listed read-only method verbatim.
	ProxyRequest(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)

	// SendTransaction fills nonce and gas values from the remote node,
	// signs and broadcasts, and returns the transaction hash.
	SendTransaction(ctx context.Context, key *SigningKey, args TransactionArgs) (common.Hash, error)

	// TransferNativeToken sends a plain value transfer.
	TransferNativeToken(ctx context.Context, key *SigningKey, to common.Address, amount *NativeTokenAmount) (common.Hash, error)
}

// RPCManager hands out chain providers by chain id.
type RPCManager interface {
	Provider(chain sealvault.ChainID) ChainProvider
}

// HTTPRPCManager is the production RPCManager: one HTTP JSON-RPC client per
// chain, created lazily from the chain registry's default endpoints.
type HTTPRPCManager struct {
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	endpoints map[sealvault.ChainID]string
	providers map[sealvault.ChainID]*HTTPChainProvider
}

var _ RPCManager = (*HTTPRPCManager)(nil)

// NewHTTPRPCManager creates a manager using the registry's default endpoints.
func NewHTTPRPCManager(httpClient *http.Client, logger *slog.Logger) *HTTPRPCManager {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPRPCManager{
		httpClient: httpClient,
		logger:     logger,
		endpoints:  make(map[sealvault.ChainID]string),
		providers:  make(map[sealvault.ChainID]*HTTPChainProvider),
	}
}

// SetEndpoint overrides the endpoint for a chain. Used by the dev server to
// point chains at a local node.
func (m *HTTPRPCManager) SetEndpoint(chain sealvault.ChainID, endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoints[chain] = endpoint
	delete(m.providers, chain)
}

// Provider returns the chain's provider, creating it on first use.
func (m *HTTPRPCManager) Provider(chain sealvault.ChainID) ChainProvider {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.providers[chain]; ok {
		return p
	}
	endpoint, ok := m.endpoints[chain]
	if !ok {
		endpoint = chain.Config().RPCEndpoint
	}
	p := NewHTTPChainProvider(chain, endpoint, m.httpClient, m.logger)
	m.providers[chain] = p
	return p
}

// HTTPChainProvider implements ChainProvider over a JSON-RPC HTTP client.
type HTTPChainProvider struct {
	chainID sealvault.ChainID
	client  *Client
	logger  *slog.Logger
}

var _ ChainProvider = (*HTTPChainProvider)(nil)

// NewHTTPChainProvider creates a provider for one chain endpoint.
func NewHTTPChainProvider(chain sealvault.ChainID, endpoint string, httpClient *http.Client, logger *slog.Logger) *HTTPChainProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPChainProvider{
		chainID: chain,
		client:  NewClient(endpoint, httpClient),
		logger:  logger,
	}
}

// ProxyRequest forwards the method and params untouched.
func (p *HTTPChainProvider) ProxyRequest(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	return p.client.CallRaw(ctx, method, params)
}

// SendTransaction signs args with key and broadcasts it. The sender is
// always the key's address; nonce, gas price and gas limit are filled from
// the remote node when the dapp did not supply them.
func (p *HTTPChainProvider) SendTransaction(ctx context.Context, key *SigningKey, args TransactionArgs) (common.Hash, error) {
	args.From = &key.Address

	if args.Nonce == nil {
		nonce, err := p.pendingNonce(ctx, key.Address)
		if err != nil {
			return common.Hash{}, err
		}
		args.Nonce = &nonce
	}
	if args.GasPrice == nil {
		gasPrice, err := p.gasPrice(ctx)
		if err != nil {
			return common.Hash{}, err
		}
		args.GasPrice = gasPrice
	}
	if args.Gas == nil {
		gas, err := p.estimateGas(ctx, args)
		if err != nil {
			return common.Hash{}, err
		}
		args.Gas = &gas
	}

	tx, err := args.ToLegacyTx()
	if err != nil {
		return common.Hash{}, sealvault.Fatal("assemble transaction", err)
	}
	signed, err := key.SignTx(tx)
	if err != nil {
		return common.Hash{}, sealvault.Fatal("sign transaction", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return common.Hash{}, sealvault.Fatal("encode transaction", err)
	}

	if _, err := p.client.Call(ctx, "eth_sendRawTransaction", []string{hexutil.Encode(raw)}); err != nil {
		return common.Hash{}, err
	}

	p.logger.Debug("transaction broadcast",
		slog.String("chain", p.chainID.DisplayName()),
		slog.String("hash", signed.Hash().Hex()),
	)
	return signed.Hash(), nil
}

// TransferNativeToken sends amount from the key's address to the recipient.
func (p *HTTPChainProvider) TransferNativeToken(ctx context.Context, key *SigningKey, to common.Address, amount *NativeTokenAmount) (common.Hash, error) {
	gas := hexutil.Uint64(transferGasLimit)
	args := TransactionArgs{
		To:    &to,
		Value: (*hexutil.Big)(amount.Wei),
		Gas:   &gas,
	}
	return p.SendTransaction(ctx, key, args)
}

func (p *HTTPChainProvider) pendingNonce(ctx context.Context, addr common.Address) (hexutil.Uint64, error) {
	result, err := p.client.Call(ctx, "eth_getTransactionCount", []string{addr.Hex(), "pending"})
	if err != nil {
		return 0, err
	}
	var nonce hexutil.Uint64
	if err := json.Unmarshal(result, &nonce); err != nil {
		return 0, sealvault.Retriable("decode nonce", err)
	}
	return nonce, nil
}

func (p *HTTPChainProvider) gasPrice(ctx context.Context) (*hexutil.Big, error) {
	result, err := p.client.Call(ctx, "eth_gasPrice", nil)
	if err != nil {
		return nil, err
	}
	var price hexutil.Big
	if err := json.Unmarshal(result, &price); err != nil {
		return nil, sealvault.Retriable("decode gas price", err)
	}
	return &price, nil
}

func (p *HTTPChainProvider) estimateGas(ctx context.Context, args TransactionArgs) (hexutil.Uint64, error) {
	// Estimate with the call fields only; nonce and gas price do not belong
	// in the estimate and can make nodes reject otherwise valid calls.
	call := TransactionArgs{
		From:  args.From,
		To:    args.To,
		Value: args.Value,
		Input: args.Input,
		Data:  args.Data,
	}
	result, err := p.client.Call(ctx, "eth_estimateGas", []TransactionArgs{call})
	if err != nil {
		return 0, err
	}
	var gas hexutil.Uint64
	if err := json.Unmarshal(result, &gas); err != nil {
		return 0, sealvault.Retriable("decode gas estimate", err)
	}
	return gas, nil
}
