package eth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/sealvault/sealvault-core"
)

const jsonRPCVersion = "2.0"

// maxRemoteResponseBytes bounds response reads from chain nodes.
const maxRemoteResponseBytes = 8 << 20

// rpcCall is the JSON-RPC 2.0 request envelope sent to chain nodes.
type rpcCall struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// rpcResult is the JSON-RPC 2.0 response envelope from chain nodes.
type rpcResult struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RemoteError    `json:"error,omitempty"`
}

// RemoteError is a JSON-RPC error object returned by a chain node.
type RemoteError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote json-rpc error %d: %s", e.Code, e.Message)
}

// Client is an HTTP JSON-RPC client for one chain endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64
}

// NewClient creates a client for an endpoint. A nil httpClient falls back to
// a default client; callers set timeouts through the http.Client.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

// Call invokes method with params marshaled to JSON and returns the raw
// result bytes.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, sealvault.Fatal("marshal rpc params", err)
		}
		raw = encoded
	}
	return c.CallRaw(ctx, method, raw)
}

// CallRaw invokes method with pre-encoded params. Remote JSON-RPC error
// objects come back as *sealvault.RPCError so their code and message pass
// through to the dapp; transport failures come back as retriable errors.
func (c *Client) CallRaw(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	call := rpcCall{
		JSONRPC: jsonRPCVersion,
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(call)
	if err != nil {
		return nil, sealvault.Fatal("marshal rpc call", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, sealvault.Fatal("build rpc request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, sealvault.Retriable("rpc endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, sealvault.Retriable(fmt.Sprintf("rpc endpoint returned status %d", resp.StatusCode), nil)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponseBytes))
	if err != nil {
		return nil, sealvault.Retriable("read rpc response", err)
	}

	var result rpcResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, sealvault.Retriable("decode rpc response", err)
	}
	if result.Error != nil {
		return nil, &sealvault.RPCError{
			Code:    sealvault.ErrorCode(result.Error.Code),
			Message: result.Error.Message,
		}
	}
	return result.Result, nil
}
