package ledger

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"go.uber.org/zap"
	"math/big"
	"sync"
)

const MaxFeePercent uint8 = 5

// Fees are percentages taken from every transfer between non-excluded accounts.
type Fees struct {
	MemberGiveaway uint8 `json:"memberGiveaway"`
	Marketing      uint8 `json:"marketing"`
	Developer      uint8 `json:"developer"`
}

func (f Fees) validate() error {
	for name, p := range map[string]uint8{"memberGiveaway": f.MemberGiveaway, "marketing": f.Marketing, "developer": f.Developer} {
		if p > MaxFeePercent {
			return fmt.Errorf("%w: %s fee %d%% is above the %d%% limit", entity.ErrInvalidPercent, name, p, MaxFeePercent)
		}
	}
	return nil
}

// FeeRail decorates a TokenRail with the payment token's transfer policy:
// a blacklist and fees paid by the recipient unless either side is excluded.
// All movements of the wrapped rail must go through the decorator.
type FeeRail struct {
	mu        sync.Mutex
	inner     TokenRail
	owner     entity.Account
	treasury  entity.Account
	giveaway  entity.Account
	fees      Fees
	excluded  map[entity.Account]bool
	blacklist map[entity.Account]bool
}

func NewFeeRail(inner TokenRail, owner, treasury, giveaway entity.Account, fees Fees) (*FeeRail, error) {
	if err := fees.validate(); err != nil {
		return nil, err
	}

	return &FeeRail{
		inner:    inner,
		owner:    owner,
		treasury: treasury,
		giveaway: giveaway,
		fees:     fees,
		excluded: map[entity.Account]bool{
			owner:    true,
			treasury: true,
			giveaway: true,
		},
		blacklist: make(map[entity.Account]bool),
	}, nil
}

func (r *FeeRail) BalanceOf(account entity.Account) (*big.Int, error) {
	return r.inner.BalanceOf(account)
}

func (r *FeeRail) Allowance(owner, spender entity.Account) (*big.Int, error) {
	return r.inner.Allowance(owner, spender)
}

func (r *FeeRail) Transfer(from, to entity.Account, amount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.blacklist[from] {
		return fmt.Errorf("%w: you have been blacklisted from trading the token", entity.ErrBlacklisted)
	}
	if r.blacklist[to] {
		return fmt.Errorf("%w: the address you are trying to send tokens to has been blacklisted", entity.ErrBlacklisted)
	}

	if err := r.inner.Transfer(from, to, amount); err != nil {
		return err
	}

	return r.takeFees(from, to, amount)
}

func (r *FeeRail) TransferFrom(spender, owner, to entity.Account, amount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.blacklist[spender] {
		return fmt.Errorf("%w: you have been blacklisted from trading the token", entity.ErrBlacklisted)
	}
	if r.blacklist[owner] {
		return fmt.Errorf("%w: the address you're trying to spend tokens from has been blacklisted", entity.ErrBlacklisted)
	}
	if r.blacklist[to] {
		return fmt.Errorf("%w: the address you are trying to send tokens to has been blacklisted", entity.ErrBlacklisted)
	}

	if err := r.inner.TransferFrom(spender, owner, to, amount); err != nil {
		return err
	}

	return r.takeFees(owner, to, amount)
}

// takeFees moves the fee share of an already settled transfer from the
// recipient to the fee wallets.
func (r *FeeRail) takeFees(from, to entity.Account, amount *big.Int) error {
	if r.excluded[from] || r.excluded[to] {
		return nil
	}

	giveaway := entity.Percent(amount, r.fees.MemberGiveaway)
	treasury := new(big.Int).Add(entity.Percent(amount, r.fees.Marketing), entity.Percent(amount, r.fees.Developer))

	if giveaway.Sign() > 0 {
		if err := r.inner.Transfer(to, r.giveaway, giveaway); err != nil {
			zap.L().With(zap.Error(err), zap.String("to", to.String())).Error("Ledger: Failed to take giveaway fee")
			return err
		}
	}
	if treasury.Sign() > 0 {
		if err := r.inner.Transfer(to, r.treasury, treasury); err != nil {
			zap.L().With(zap.Error(err), zap.String("to", to.String())).Error("Ledger: Failed to take treasury fee")
			return err
		}
	}

	return nil
}

func (r *FeeRail) Fees() Fees {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.fees
}

func (r *FeeRail) UpdateFees(caller entity.Account, fees Fees) error {
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if err := fees.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.fees = fees
	return nil
}

func (r *FeeRail) ExcludeFromFees(caller, account entity.Account) error {
	return r.setFlag(caller, r.excluded, account, true)
}

func (r *FeeRail) IncludeInFees(caller, account entity.Account) error {
	return r.setFlag(caller, r.excluded, account, false)
}

func (r *FeeRail) ExcludedFromFees(account entity.Account) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.excluded[account]
}

func (r *FeeRail) Blacklist(caller, account entity.Account) error {
	return r.setFlag(caller, r.blacklist, account, true)
}

func (r *FeeRail) Unblacklist(caller, account entity.Account) error {
	return r.setFlag(caller, r.blacklist, account, false)
}

func (r *FeeRail) Blacklisted(account entity.Account) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.blacklist[account]
}

func (r *FeeRail) setFlag(caller entity.Account, flags map[entity.Account]bool, account entity.Account, value bool) error {
	if err := r.onlyOwner(caller); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if value {
		flags[account] = true
	} else {
		delete(flags, account)
	}
	return nil
}

func (r *FeeRail) onlyOwner(caller entity.Account) error {
	if caller != r.owner {
		return fmt.Errorf("%w: only the token owner can do this", entity.ErrAuthorization)
	}
	return nil
}
