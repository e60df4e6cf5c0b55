package entity

import (
	"errors"
	"fmt"
)

var (
	ErrAuthorization         = errors.New("not authorized")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNotOwner              = errors.New("not owner")
	ErrIneligibleParty       = errors.New("ineligible party")
	ErrUnknownContract       = errors.New("unknown contract")
	ErrListingFeeMismatch    = errors.New("listing fee mismatch")
	ErrPriceMismatch         = errors.New("price mismatch")
	ErrWhitelistViolation    = errors.New("whitelist violation")
	ErrMembershipRequired    = errors.New("membership required")
	ErrCapacityExceeded      = errors.New("capacity exceeded")

	ErrBlacklisted    = errors.New("blacklisted")
	ErrAssetNotFound  = errors.New("asset not found")
	ErrItemNotFound   = errors.New("market item not found")
	ErrItemSold       = errors.New("market item already sold")
	ErrNothingToClaim = errors.New("nothing to claim")
	ErrInvalidPercent = errors.New("invalid percent")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// TransientError marks a failure of the transport rather than of the ledger.
// The operation may or may not have been applied and must be retried.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func NewTransientError(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsPaymentFailure reports whether err is a failed pull of funds, the only
// failure that revokes a membership on charge.
func IsPaymentFailure(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInsufficientAllowance)
}
