package entity

import "math/big"

type ChargeOutcome uint8

const (
	Charged             ChargeOutcome = 0
	BurnedForNonPayment ChargeOutcome = 1
)

func (o ChargeOutcome) String() string {
	switch o {
	case Charged:
		return "Charged"
	case BurnedForNonPayment:
		return "BurnedForNonPayment"
	}
	return "Unknown"
}

// ChargeResult is the outcome of a single membership charge. DiscountConsumed
// is true when a one-shot discount was applied and reset by this charge.
type ChargeResult struct {
	Outcome          ChargeOutcome `json:"outcome"`
	DiscountConsumed bool          `json:"discountConsumed"`
	Amount           *big.Int      `json:"amount"`
}

type MintResult struct {
	AssetId          uint64   `json:"assetId"`
	DiscountConsumed bool     `json:"discountConsumed"`
	Amount           *big.Int `json:"amount"`
}
