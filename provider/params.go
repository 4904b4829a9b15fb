package provider

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sealvault/sealvault-core"
)

// paramsReader consumes positional JSON-RPC params left to right. All shape
// failures are InvalidParams protocol errors, never envelope failures: by
// the time params are read, a request id exists to respond with.
type paramsReader struct {
	items []json.RawMessage
}

func newParamsReader(params json.RawMessage) (*paramsReader, error) {
	if len(params) == 0 {
		return &paramsReader{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(params, &items); err != nil {
		return nil, sealvault.NewRPCError(sealvault.InvalidParams)
	}
	return &paramsReader{items: items}, nil
}

// next reads the next required param into target.
func (r *paramsReader) next(target any) error {
	if len(r.items) == 0 {
		return sealvault.NewRPCError(sealvault.InvalidParams)
	}
	item := r.items[0]
	r.items = r.items[1:]
	if err := json.Unmarshal(item, target); err != nil {
		return sealvault.NewRPCError(sealvault.InvalidParams)
	}
	return nil
}

// optionalNext reads the next param into target if one is present. A present
// param must still match the target's type.
func (r *paramsReader) optionalNext(target any) error {
	if len(r.items) == 0 {
		return nil
	}
	return r.next(target)
}

// oneParam parses params as an array holding exactly one value.
func oneParam(params json.RawMessage, target any) error {
	r, err := newParamsReader(params)
	if err != nil {
		return err
	}
	if len(r.items) != 1 {
		return sealvault.NewRPCError(sealvault.InvalidParams)
	}
	return r.next(target)
}

// firstParam parses the first param, ignoring any trailing ones.
func firstParam(params json.RawMessage, target any) error {
	r, err := newParamsReader(params)
	if err != nil {
		return err
	}
	return r.next(target)
}

func strip0xPrefix(value string) (string, error) {
	stripped, ok := strings.CutPrefix(value, "0x")
	if !ok {
		return "", sealvault.RPCErrorf(sealvault.InvalidParams, "Message must start with 0x")
	}
	return stripped, nil
}

// decode0xHex decodes a 0x prefixed hex param into bytes.
func decode0xHex(value string) ([]byte, error) {
	stripped, err := strip0xPrefix(value)
	if err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(stripped)
	if err != nil {
		return nil, sealvault.RPCErrorf(sealvault.InvalidParams, "Invalid hex")
	}
	return data, nil
}

// parse0xChainID parses an EIP-695 hex chain id param into a supported chain.
func parse0xChainID(value string) (sealvault.ChainID, error) {
	stripped, err := strip0xPrefix(value)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(stripped, 16, 64)
	if err != nil {
		return 0, sealvault.RPCErrorf(sealvault.InvalidParams, "Invalid U64")
	}
	chain := sealvault.ChainID(id)
	if !chain.Supported() {
		return 0, sealvault.RPCErrorf(sealvault.InvalidParams, "Unsupported chain id")
	}
	return chain, nil
}
