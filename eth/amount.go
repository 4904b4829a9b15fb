package eth

import (
	"errors"
	"math/big"
)

// NativeTokenDecimals is the decimal count of every supported chain's native
// token (ETH and MATIC both use 18).
const NativeTokenDecimals = 18

// ErrInvalidAmount is returned for amount strings that do not parse to an
// exact wei value.
var ErrInvalidAmount = errors.New("invalid native token amount")

// NativeTokenAmount is a native token value carried as wei.
type NativeTokenAmount struct {
	Wei *big.Int
}

// NewNativeTokenAmount parses a decimal display amount (e.g. "0.1") into wei.
func NewNativeTokenAmount(amount string) (*NativeTokenAmount, error) {
	wei, err := amountToWei(amount, NativeTokenDecimals)
	if err != nil {
		return nil, err
	}
	return &NativeTokenAmount{Wei: wei}, nil
}

// String returns the decimal display form, e.g. "0.100000000000000000".
func (a *NativeTokenAmount) String() string {
	if a == nil || a.Wei == nil {
		return "0"
	}
	f := new(big.Float).SetInt(a.Wei)
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(NativeTokenDecimals), nil))
	f.Quo(f, divisor)
	return f.Text('f', NativeTokenDecimals)
}

// amountToWei converts a decimal string to atomic units. Values with more
// precision than the decimal count are rejected rather than rounded.
func amountToWei(amount string, decimals int) (*big.Int, error) {
	value := new(big.Float)
	value.SetPrec(256)
	if _, ok := value.SetString(amount); !ok {
		return nil, ErrInvalidAmount
	}
	if value.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	multiplier := new(big.Float).SetPrec(256)
	multiplier.SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value.Mul(value, multiplier)

	result, accuracy := value.Int(nil)
	if accuracy != big.Exact {
		return nil, ErrInvalidAmount
	}
	return result, nil
}
