package ledger

import (
	"github.com/ZilDuck/membership-market/internal/entity"
	"math/big"
)

// TokenRail moves the fungible payment token. Implementations return
// entity.ErrInsufficientFunds, entity.ErrInsufficientAllowance or
// entity.ErrBlacklisted (wrapped) for refused movements and a
// *entity.TransientError when the outcome is unknown.
type TokenRail interface {
	BalanceOf(account entity.Account) (*big.Int, error)
	Allowance(owner, spender entity.Account) (*big.Int, error)
	Transfer(from, to entity.Account, amount *big.Int) error
	TransferFrom(spender, owner, to entity.Account, amount *big.Int) error
}

// NativeRail moves the chain's native currency, used for listing fees and
// node rewards.
type NativeRail interface {
	NativeBalance(account entity.Account) *big.Int
	SendNative(from, to entity.Account, amount *big.Int) error
}
