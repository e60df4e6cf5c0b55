package zilliqa

import (
	"encoding/json"
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/pkg/zil"
	"time"
)

// Registry drives a deployed membership registry contract as its owner.
type Registry struct {
	service Service
	address entity.Account
	owner   entity.Account
}

func NewRegistry(service Service, address, owner entity.Account) *Registry {
	return &Registry{service, address, owner}
}

// ActiveMemberships lists the memberships that are not burned, in the
// gateway's id order. Exempt holders are left to the caller.
func (r *Registry) ActiveMemberships() ([]entity.Asset, error) {
	assets, err := r.service.GetMembershipAssets(r.address.String())
	if err != nil {
		return nil, err
	}

	active := make([]entity.Asset, 0, len(assets))
	for _, asset := range assets {
		if asset.IsMembership() && !asset.Burned {
			active = append(active, asset)
		}
	}
	return active, nil
}

func (r *Registry) Asset(id uint64) (entity.Asset, error) {
	asset, err := r.service.GetAsset(r.address.String(), id)
	if err != nil {
		return entity.Asset{}, err
	}
	return *asset, nil
}

func (r *Registry) ChargeForMembership(owner entity.Account, id uint64, now time.Time) (entity.ChargeResult, error) {
	receipt, err := r.service.CallTransition(Transition{
		Contract:   r.address.String(),
		Transition: "ChargeForMembership",
		Sender:     r.owner.String(),
		Params: zil.Params{
			zil.Address("owner", owner.String()),
			zil.Uint256("token_id", id),
			zil.String("charged_at", now.UTC().Format(time.RFC3339Nano)),
		},
	})
	if err != nil {
		return entity.ChargeResult{}, err
	}

	if _, ok := receipt.Event("MembershipBurned"); ok {
		return entity.ChargeResult{Outcome: entity.BurnedForNonPayment, Amount: entity.Zero()}, nil
	}

	charged, ok := receipt.Event("MembershipCharged")
	if !ok {
		return entity.ChargeResult{}, fmt.Errorf("charge of %d in %s emitted no outcome", id, receipt.TxId)
	}

	amount, err := charged.Params.GetAmount("amount")
	if err != nil {
		return entity.ChargeResult{}, err
	}
	consumed, err := charged.Params.GetBool("discount_consumed")
	if err != nil {
		consumed = false
	}

	return entity.ChargeResult{Outcome: entity.Charged, DiscountConsumed: consumed, Amount: amount}, nil
}

func (r *Registry) AddressIsMember(account entity.Account) (bool, error) {
	state, err := r.service.GetSmartContractSubState(r.address.String(), "members", account.String())
	if err != nil {
		return false, err
	}

	members := map[string]string{}
	if raw, ok := state["members"]; ok {
		if err := json.Unmarshal(raw, &members); err != nil {
			return false, err
		}
	}

	count, err := parseAmount(members[account.String()])
	if err != nil {
		return false, err
	}
	return count.Sign() > 0, nil
}
