package entity

import (
	"fmt"
	"math/big"
)

var hundred = big.NewInt(100)

func Zero() *big.Int {
	return new(big.Int)
}

func Copy(amount *big.Int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(amount)
}

// ApplyDiscount returns price*(100-percent)/100, truncated.
func ApplyDiscount(price *big.Int, percent uint8) *big.Int {
	if percent > 100 {
		percent = 100
	}
	net := new(big.Int).Mul(Copy(price), big.NewInt(int64(100-percent)))
	return net.Quo(net, hundred)
}

// Percent returns amount*percent/100, truncated.
func Percent(amount *big.Int, percent uint8) *big.Int {
	out := new(big.Int).Mul(Copy(amount), big.NewInt(int64(percent)))
	return out.Quo(out, hundred)
}

func ParseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	return amount, nil
}

func IsNegative(amount *big.Int) bool {
	return amount != nil && amount.Sign() < 0
}
