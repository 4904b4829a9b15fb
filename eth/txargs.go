package eth

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// TransactionArgs is the JSON shape of an eth_sendTransaction parameter.
// All numeric fields are hexutil quantities as they appear on the wire.
// Gas pricing stays legacy until max priority fee estimates are reliable on
// every supported chain.
type TransactionArgs struct {
	From     *common.Address `json:"from,omitempty"`
	To       *common.Address `json:"to,omitempty"`
	Gas      *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Nonce    *hexutil.Uint64 `json:"nonce,omitempty"`

	// Data and Input both carry calldata; Input is the canonical name and
	// wins when both are set.
	Data  *hexutil.Bytes `json:"data,omitempty"`
	Input *hexutil.Bytes `json:"input,omitempty"`
}

// ErrMissingNonce is returned when a transaction is assembled before its
// nonce was filled from the remote node.
var ErrMissingNonce = errors.New("transaction nonce not set")

// ClearNonce drops any client-supplied nonce so the signer fills the current
// value from the remote node. Stale dapp nonces would otherwise produce stuck
// or duplicate transactions.
func (args *TransactionArgs) ClearNonce() {
	args.Nonce = nil
}

// CallData returns the calldata, preferring Input over Data.
func (args *TransactionArgs) CallData() []byte {
	if args.Input != nil {
		return *args.Input
	}
	if args.Data != nil {
		return *args.Data
	}
	return nil
}

// value returns the transfer value, defaulting to zero.
func (args *TransactionArgs) value() *big.Int {
	if args.Value != nil {
		return (*big.Int)(args.Value)
	}
	return new(big.Int)
}

// ToLegacyTx assembles an unsigned legacy transaction. Nonce, GasPrice and
// Gas must have been filled first.
func (args *TransactionArgs) ToLegacyTx() (*types.Transaction, error) {
	if args.Nonce == nil {
		return nil, ErrMissingNonce
	}
	if args.GasPrice == nil {
		return nil, errors.New("transaction gas price not set")
	}
	if args.Gas == nil {
		return nil, errors.New("transaction gas limit not set")
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    uint64(*args.Nonce),
		GasPrice: (*big.Int)(args.GasPrice),
		Gas:      uint64(*args.Gas),
		To:       args.To,
		Value:    args.value(),
		Data:     args.CallData(),
	}), nil
}
