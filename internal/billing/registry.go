package billing

import (
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/membership"
	"time"
)

// Registry is the scheduler's view of a membership registry, local or remote.
// Remote implementations return *entity.TransientError for transport failures.
type Registry interface {
	ActiveMemberships() ([]entity.Asset, error)
	Asset(id uint64) (entity.Asset, error)
	ChargeForMembership(owner entity.Account, id uint64, now time.Time) (entity.ChargeResult, error)
	AddressIsMember(account entity.Account) (bool, error)
}

type localRegistry struct {
	registry *membership.Registry
}

// NewLocalRegistry drives an in-process registry as its owner.
func NewLocalRegistry(registry *membership.Registry) Registry {
	return localRegistry{registry}
}

func (l localRegistry) ActiveMemberships() ([]entity.Asset, error) {
	return l.registry.ActiveMemberships(), nil
}

func (l localRegistry) Asset(id uint64) (entity.Asset, error) {
	return l.registry.Asset(id)
}

func (l localRegistry) ChargeForMembership(owner entity.Account, id uint64, now time.Time) (entity.ChargeResult, error) {
	return l.registry.ChargeForMembership(l.registry.Owner(), owner, id, now)
}

func (l localRegistry) AddressIsMember(account entity.Account) (bool, error) {
	return l.registry.AddressIsMember(account), nil
}
