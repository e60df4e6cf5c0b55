package membership

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/event"
	"go.uber.org/zap"
	"math/big"
	"time"
)

func (r *Registry) SetAdminUser(caller, account entity.Account, isAdmin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}

	if isAdmin {
		r.admins[account] = true
	} else {
		delete(r.admins, account)
	}

	zap.L().With(zap.String("account", account.String()), zap.Bool("admin", isAdmin)).Info("Registry: Admin updated")
	return nil
}

func (r *Registry) IsAdmin(account entity.Account) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.admins[account]
}

// SetMemberDiscount replaces any discount target already has.
func (r *Registry) SetMemberDiscount(caller, target entity.Account, percent uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyAdmin(caller); err != nil {
		return err
	}
	if percent > 100 {
		return fmt.Errorf("%w: discount of %d%%", entity.ErrInvalidPercent, percent)
	}

	if percent == 0 {
		delete(r.discounts, target)
	} else {
		r.discounts[target] = percent
	}

	zap.L().With(zap.String("account", target.String()), zap.Uint8("percent", percent)).Info("Registry: Discount set")
	return nil
}

func (r *Registry) Discount(account entity.Account) uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.discounts[account]
}

// AddWhiteListToToken reserves the purchase of an owner listed asset for account.
func (r *Registry) AddWhiteListToToken(caller, account entity.Account, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}

	asset, err := r.get(id)
	if err != nil {
		return err
	}
	if asset.Burned {
		return fmt.Errorf("%w: %d is burned", entity.ErrAssetNotFound, id)
	}
	asset.WhitelistAddress = account

	return nil
}

// CreateToken mints an asset of any type to the owner.
func (r *Registry) CreateToken(caller entity.Account, uri string, typeId entity.AssetType, listingFee *big.Int, lastPaidAt time.Time) (uint64, error) {
	if entity.IsNegative(listingFee) {
		return 0, fmt.Errorf("%w: listing fee %s", entity.ErrInvalidAmount, listingFee)
	}

	r.mu.Lock()
	if err := r.onlyOwner(caller); err != nil {
		r.mu.Unlock()
		return 0, err
	}
	asset := r.create(r.owner, typeId, uri, listingFee, lastPaidAt).Clone()
	r.mu.Unlock()

	zap.L().With(zap.Uint64("tokenId", asset.Id), zap.String("type", typeId.String())).Info("Registry: Token created")
	event.EmitEvent(event.MembershipMintedEvent, asset)

	return asset.Id, nil
}

func (r *Registry) UpdateMembershipPrice(caller entity.Account, price *big.Int) error {
	if price == nil || price.Sign() < 0 {
		return fmt.Errorf("%w: price %v", entity.ErrInvalidAmount, price)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	r.price = entity.Copy(price)

	zap.L().With(zap.String("price", price.String())).Info("Registry: Membership price updated")
	return nil
}

func (r *Registry) UpdateMembershipTokenURI(caller entity.Account, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	r.tokenURI = uri

	return nil
}

func (r *Registry) UpdateTokenURI(caller entity.Account, id uint64, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	asset, err := r.get(id)
	if err != nil {
		return err
	}
	asset.MetadataURI = uri

	return nil
}

// UpdateLastPaid overrides the billing clock of a single asset.
func (r *Registry) UpdateLastPaid(caller entity.Account, id uint64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	asset, err := r.get(id)
	if err != nil {
		return err
	}
	asset.LastPaidAt = at

	return nil
}

// WithdrawFunds sends everything the registry collected to the owner.
func (r *Registry) WithdrawFunds(caller entity.Account) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return nil, err
	}

	balance, err := r.rail.BalanceOf(r.address)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return balance, nil
	}
	if err := r.rail.Transfer(r.address, r.owner, balance); err != nil {
		return nil, err
	}

	zap.L().With(zap.String("amount", balance.String())).Info("Registry: Funds withdrawn")
	return balance, nil
}
