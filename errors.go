package sealvault

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the wallet core
var (
	// ErrInvalidRawRequest indicates an in-page request that could not be
	// parsed as a JSON-RPC envelope, so no request id is available to build
	// an error response with.
	ErrInvalidRawRequest = errors.New("could not parse JSON-RPC request")

	// ErrUnsupportedChain indicates a chain id outside the supported set.
	ErrUnsupportedChain = errors.New("unsupported chain id")

	// ErrNoActiveAccount indicates that local settings name no active account.
	ErrNoActiveAccount = errors.New("no active account")

	// ErrResponseTooLarge indicates a serialized response over the size ceiling.
	ErrResponseTooLarge = errors.New("response exceeds size limit")
)

// ErrorCode is a JSON-RPC error code the bridge puts on the wire. The first
// block is the standard JSON-RPC 2.0 set, the second is the EIP-1193 provider
// set. Dapps switch on these numbers, so they are part of the external
// contract and must fit into a signed 32-bit integer.
type ErrorCode int32

const (
	// Standard JSON-RPC 2.0 codes. https://www.jsonrpc.org/specification
	ParseError     ErrorCode = -32700
	InvalidRequest ErrorCode = -32600
	MethodNotFound ErrorCode = -32601
	InvalidParams  ErrorCode = -32602
	InternalError  ErrorCode = -32603

	// EIP-1193 provider codes.
	// https://github.com/ethereum/EIPs/blob/master/EIPS/eip-1193.md#provider-errors
	UserRejected      ErrorCode = 4001
	Unauthorized      ErrorCode = 4100
	UnsupportedMethod ErrorCode = 4200
	Disconnected      ErrorCode = 4900
	ChainDisconnected ErrorCode = 4901
)

// AllErrorCodes lists every code the bridge can return.
var AllErrorCodes = []ErrorCode{
	ParseError,
	InvalidRequest,
	MethodNotFound,
	InvalidParams,
	InternalError,
	UserRejected,
	Unauthorized,
	UnsupportedMethod,
	Disconnected,
	ChainDisconnected,
}

// Message returns the default human-readable message for the code.
func (c ErrorCode) Message() string {
	switch c {
	case ParseError:
		return "Parse error"
	case InvalidRequest:
		return "Invalid request"
	case MethodNotFound:
		return "Method not found"
	case InvalidParams:
		return "Invalid params"
	case InternalError:
		return "Internal error"
	case UserRejected:
		return "User rejected the request"
	case Unauthorized:
		return "Unauthorized"
	case UnsupportedMethod:
		return "Unsupported method"
	case Disconnected:
		return "Disconnected"
	case ChainDisconnected:
		return "Chain disconnected"
	default:
		return "Unknown error"
	}
}

// RPCError is a protocol-level failure: a well-formed, expected outcome
// returned to the dapp as a JSON-RPC error response. The request still
// succeeds at the envelope level.
type RPCError struct {
	Code    ErrorCode
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// NewRPCError returns an RPCError with the code's default message.
func NewRPCError(code ErrorCode) *RPCError {
	return &RPCError{Code: code, Message: code.Message()}
}

// RPCErrorf returns an RPCError with a formatted message.
func RPCErrorf(code ErrorCode, format string, args ...any) *RPCError {
	return &RPCError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// RetriableError is an envelope-level failure that cannot be mapped to a
// JSON-RPC error response because no request id could be parsed. The caller
// is expected to resend a corrected request; retrying the same payload
// cannot succeed.
type RetriableError struct {
	Message string
	Err     error
}

func (e *RetriableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

func (e *RetriableError) Unwrap() error { return e.Err }

// Retriable wraps err as a RetriableError.
func Retriable(message string, err error) *RetriableError {
	return &RetriableError{Message: message, Err: err}
}

// FatalError is an invariant violation: a defect, not an expected outcome.
// Logged and surfaced to the host as an opaque failure, never retried.
type FatalError struct {
	Message string
	Err     error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err as a FatalError.
func Fatal(message string, err error) *FatalError {
	return &FatalError{Message: message, Err: err}
}

// Fatalf returns a FatalError with a formatted message and no cause.
func Fatalf(format string, args ...any) *FatalError {
	return &FatalError{Message: fmt.Sprintf(format, args...)}
}
