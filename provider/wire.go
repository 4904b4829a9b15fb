package provider

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/sealvault/sealvault-core"
)

// rpcRequest is an incoming JSON-RPC 2.0 request envelope. Params stay raw
// until the handler for the method parses them.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Result  json.RawMessage   `json:"result,omitempty"`
	Error   *rpcResponseError `json:"error,omitempty"`
}

type rpcResponseError struct {
	Code    sealvault.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

// invalidRawRequest wraps a parse failure so the embedding application can
// tell the page's request was malformed before a request id was known.
func invalidRawRequest(cause error) error {
	err := error(sealvault.ErrInvalidRawRequest)
	if cause != nil {
		err = fmt.Errorf("%w: %v", sealvault.ErrInvalidRawRequest, cause)
	}
	return sealvault.Retriable("Could not parse JSON-RPC request", err)
}

// parseRequest decodes and validates the request envelope. A missing id is
// normalized to JSON null so error responses always carry an id member.
func parseRequest(rawRequest string) (*rpcRequest, error) {
	var req rpcRequest
	if err := json.Unmarshal([]byte(rawRequest), &req); err != nil {
		return nil, invalidRawRequest(err)
	}
	if req.JSONRPC != "2.0" {
		return nil, invalidRawRequest(nil)
	}
	if req.Method == "" {
		return nil, invalidRawRequest(nil)
	}
	if len(req.ID) == 0 {
		req.ID = json.RawMessage("null")
	}
	return &req, nil
}

// resultResponse builds the hex encoded success response. Responses above
// the size ceiling are replaced by an internal error response with the same
// id rather than sent truncated.
func (p *Provider) resultResponse(id json.RawMessage, result any) (string, error) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", sealvault.Fatal("Failed to serialize json value", err)
	}
	response, err := json.Marshal(rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  encoded,
	})
	if err != nil {
		return "", sealvault.Fatal("Failed to serialize json value", err)
	}
	if len(response) > p.config.MaxResponseBytes {
		return p.errorResponse(id, sealvault.NewRPCError(sealvault.InternalError))
	}
	return EncodeHex(response), nil
}

// errorResponse builds the hex encoded error response for protocol errors.
func (p *Provider) errorResponse(id json.RawMessage, rpcErr *sealvault.RPCError) (string, error) {
	response, err := json.Marshal(rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &rpcResponseError{
			Code:    rpcErr.Code,
			Message: rpcErr.Message,
		},
	})
	if err != nil {
		return "", sealvault.Fatal("Failed to serialize json value", err)
	}
	return EncodeHex(response), nil
}

// EncodeHex encodes bytes handed to the page as lowercase hex without a 0x
// prefix. Responses and notifications cross the bridge hex encoded so their
// contents cannot be interpreted in the page context before the injected
// script decodes them.
func EncodeHex(data []byte) string {
	return hex.EncodeToString(data)
}

// DecodeHex reverses EncodeHex.
func DecodeHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
