package membership

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/event"
	"go.uber.org/zap"
)

type Transfer struct {
	Contract entity.Account `json:"contract"`
	TokenId  uint64         `json:"tokenId"`
	From     entity.Account `json:"from"`
	To       entity.Account `json:"to"`
}

func (r *Registry) SetApprovalForAll(owner, operator entity.Account, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.operators[owner]; !ok {
		r.operators[owner] = make(map[entity.Account]bool)
	}
	if approved {
		r.operators[owner][operator] = true
	} else {
		delete(r.operators[owner], operator)
	}
}

func (r *Registry) IsApprovedForAll(owner, operator entity.Account) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.operators[owner][operator]
}

// TransferFrom moves an asset on behalf of caller, who must be the holder or
// an approved operator.
func (r *Registry) TransferFrom(caller, from, to entity.Account, id uint64) error {
	r.mu.Lock()
	if caller != from && !r.operators[from][caller] {
		r.mu.Unlock()
		return fmt.Errorf("%w: caller is not the holder or an approved operator", entity.ErrAuthorization)
	}
	err := r.transfer(from, to, id)
	r.mu.Unlock()

	if err != nil {
		return err
	}

	r.transferred(from, to, id)
	return nil
}

// TransferOwnership is the escrow facing ownership primitive.
func (r *Registry) TransferOwnership(from, to entity.Account, id uint64) error {
	r.mu.Lock()
	err := r.transfer(from, to, id)
	r.mu.Unlock()

	if err != nil {
		return err
	}

	r.transferred(from, to, id)
	return nil
}

func (r *Registry) transfer(from, to entity.Account, id uint64) error {
	if to.IsZero() {
		return fmt.Errorf("%w: empty recipient", entity.ErrInvalidAddress)
	}

	asset, err := r.get(id)
	if err != nil {
		return err
	}
	if asset.Burned || asset.Owner != from {
		return fmt.Errorf("%w: %s doesn't own the NFT %d", entity.ErrNotOwner, from, id)
	}

	r.reassign(asset, to)
	return nil
}

func (r *Registry) transferred(from, to entity.Account, id uint64) {
	zap.L().With(zap.Uint64("tokenId", id), zap.String("from", from.String()), zap.String("to", to.String())).Debug("Registry: Transfer")
	event.EmitEvent(event.AssetTransferredEvent, Transfer{Contract: r.address, TokenId: id, From: from, To: to})
}
