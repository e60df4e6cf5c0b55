package zilliqa

import (
	"encoding/json"
	"github.com/ZilDuck/membership-market/internal/entity"
)

type Service interface {
	GetNetworkId() (string, error)
	GetSmartContractSubState(contract, field string, indices ...string) (map[string]json.RawMessage, error)
	CallTransition(t Transition) (*Receipt, error)
	GetMembershipAssets(registry string) ([]entity.Asset, error)
	GetAsset(registry string, id uint64) (*entity.Asset, error)
}

func NewZilliqaService(provider *Provider) Service {
	return provider
}
