package membership

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/event"
	"go.uber.org/zap"
	"time"
)

// MintMembership sells a new membership to caller at the current price net
// of caller's discount.
func (r *Registry) MintMembership(caller entity.Account) (entity.MintResult, error) {
	r.mu.Lock()
	result, asset, err := r.mintMembership(caller)
	r.mu.Unlock()

	if err != nil {
		zap.L().With(zap.Error(err), zap.String("caller", caller.String())).Warn("Registry: Membership mint refused")
		return result, err
	}

	zap.L().With(
		zap.Uint64("tokenId", result.AssetId),
		zap.String("owner", caller.String()),
		zap.String("amount", result.Amount.String()),
		zap.Bool("discount", result.DiscountConsumed),
	).Info("Registry: Membership minted")
	event.EmitEvent(event.MembershipMintedEvent, asset)

	return result, nil
}

func (r *Registry) mintMembership(caller entity.Account) (entity.MintResult, entity.Asset, error) {
	discount := r.discounts[caller]
	net := entity.ApplyDiscount(r.price, discount)

	balance, err := r.rail.BalanceOf(caller)
	if err != nil {
		return entity.MintResult{}, entity.Asset{}, err
	}
	if balance.Cmp(net) < 0 {
		return entity.MintResult{}, entity.Asset{}, fmt.Errorf("%w: you don't have enough to pay for the membership", entity.ErrInsufficientFunds)
	}

	allowance, err := r.rail.Allowance(caller, r.address)
	if err != nil {
		return entity.MintResult{}, entity.Asset{}, err
	}
	if allowance.Cmp(net) < 0 {
		return entity.MintResult{}, entity.Asset{}, fmt.Errorf("%w: you haven't approved the registry to spend enough for the membership", entity.ErrInsufficientAllowance)
	}

	if err := r.rail.TransferFrom(r.address, caller, r.address, net); err != nil {
		return entity.MintResult{}, entity.Asset{}, err
	}

	consumed := r.consumeDiscount(caller)
	asset := r.create(caller, entity.MembershipAsset, r.tokenURI, r.listingFee, r.clock())

	return entity.MintResult{AssetId: asset.Id, DiscountConsumed: consumed, Amount: net}, asset.Clone(), nil
}

// ChargeForMembership bills owner for asset id. A refused payment revokes the
// asset by moving it into the registry's custody and is reported as
// BurnedForNonPayment, not as an error. Only the owner may charge.
func (r *Registry) ChargeForMembership(caller, owner entity.Account, id uint64, now time.Time) (entity.ChargeResult, error) {
	r.mu.Lock()
	result, asset, err := r.charge(caller, owner, id, now)
	r.mu.Unlock()

	if err != nil {
		return result, err
	}

	fields := []zap.Field{
		zap.Uint64("tokenId", id),
		zap.String("owner", owner.String()),
		zap.String("outcome", result.Outcome.String()),
	}
	if result.Outcome == entity.Charged {
		zap.L().With(append(fields, zap.String("amount", result.Amount.String()))...).Info("Registry: Membership charged")
		event.EmitEvent(event.MembershipChargedEvent, asset)
	} else {
		zap.L().With(fields...).Info("Registry: Membership burned for non payment")
		event.EmitEvent(event.MembershipBurnedEvent, asset)
	}

	return result, nil
}

func (r *Registry) charge(caller, owner entity.Account, id uint64, now time.Time) (entity.ChargeResult, entity.Asset, error) {
	if err := r.onlyOwner(caller); err != nil {
		return entity.ChargeResult{}, entity.Asset{}, err
	}

	asset, err := r.get(id)
	if err != nil {
		return entity.ChargeResult{}, entity.Asset{}, err
	}
	if asset.Owner != owner {
		return entity.ChargeResult{}, entity.Asset{}, fmt.Errorf("%w: %s doesn't own the NFT %d", entity.ErrNotOwner, owner, id)
	}
	if r.exempt(owner) {
		return entity.ChargeResult{}, entity.Asset{}, fmt.Errorf("%w: can't charge the owner or marketplace", entity.ErrIneligibleParty)
	}
	if !asset.IsMembership() {
		return entity.ChargeResult{}, entity.Asset{}, fmt.Errorf("%w: %d is not a membership", entity.ErrAssetNotFound, id)
	}

	net := entity.ApplyDiscount(r.price, r.discounts[owner])

	err = r.rail.TransferFrom(r.address, owner, r.address, net)
	if err != nil && !entity.IsPaymentFailure(err) {
		return entity.ChargeResult{}, entity.Asset{}, err
	}

	if err != nil {
		r.burn(asset, now)
		return entity.ChargeResult{Outcome: entity.BurnedForNonPayment, Amount: entity.Zero()}, asset.Clone(), nil
	}

	asset.LastPaidAt = now
	consumed := r.consumeDiscount(owner)

	return entity.ChargeResult{Outcome: entity.Charged, DiscountConsumed: consumed, Amount: net}, asset.Clone(), nil
}

// BurnMembershipManually revokes a membership without attempting payment.
func (r *Registry) BurnMembershipManually(caller entity.Account, id uint64) error {
	r.mu.Lock()
	asset, err := r.burnManually(caller, id)
	r.mu.Unlock()

	if err != nil {
		return err
	}

	zap.L().With(zap.Uint64("tokenId", id)).Info("Registry: Membership burned manually")
	event.EmitEvent(event.MembershipBurnedEvent, asset)

	return nil
}

func (r *Registry) burnManually(caller entity.Account, id uint64) (entity.Asset, error) {
	if err := r.onlyOwner(caller); err != nil {
		return entity.Asset{}, err
	}

	asset, err := r.get(id)
	if err != nil {
		return entity.Asset{}, err
	}
	if !asset.IsMembership() {
		return entity.Asset{}, fmt.Errorf("%w: %d is not a membership", entity.ErrAssetNotFound, id)
	}
	if asset.Burned {
		return entity.Asset{}, fmt.Errorf("%w: %d is already burned", entity.ErrAssetNotFound, id)
	}

	r.burn(asset, r.clock())
	return asset.Clone(), nil
}

// GrantMembership mints a free membership to an account, for crew members
// added by hand.
func (r *Registry) GrantMembership(caller, to entity.Account) (uint64, error) {
	r.mu.Lock()
	if err := r.onlyAdmin(caller); err != nil {
		r.mu.Unlock()
		return 0, err
	}
	asset := r.create(to, entity.MembershipAsset, r.tokenURI, r.listingFee, r.clock())
	minted := asset.Clone()
	r.mu.Unlock()

	zap.L().With(zap.Uint64("tokenId", minted.Id), zap.String("owner", to.String())).Info("Registry: Membership granted")
	event.EmitEvent(event.MembershipMintedEvent, minted)

	return minted.Id, nil
}

func (r *Registry) burn(asset *entity.Asset, at time.Time) {
	r.reassign(asset, r.address)
	asset.Burned = true
	asset.BurnedAt = at
	asset.WhitelistAddress = entity.NoAccount
}

func (r *Registry) consumeDiscount(account entity.Account) bool {
	if r.discounts[account] == 0 {
		return false
	}
	delete(r.discounts, account)
	return true
}
