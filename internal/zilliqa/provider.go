package zilliqa

import (
	"encoding/json"
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/pkg/zil"
	"strconv"
)

// Error codes raised by the ledger gateway when a transition is refused.
const (
	CodeAuthorization         RPCErrorCode = -32010
	CodeInsufficientFunds     RPCErrorCode = -32011
	CodeInsufficientAllowance RPCErrorCode = -32012
	CodeNotOwner              RPCErrorCode = -32013
	CodeIneligibleParty       RPCErrorCode = -32014
	CodeBlacklisted           RPCErrorCode = -32015
	CodeAssetNotFound         RPCErrorCode = -32016
	CodeInvalidAmount         RPCErrorCode = -32017
	CodeNodeBusy              RPCErrorCode = -32005
)

var codeErrors = map[RPCErrorCode]error{
	CodeAuthorization:         entity.ErrAuthorization,
	CodeInsufficientFunds:     entity.ErrInsufficientFunds,
	CodeInsufficientAllowance: entity.ErrInsufficientAllowance,
	CodeNotOwner:              entity.ErrNotOwner,
	CodeIneligibleParty:       entity.ErrIneligibleParty,
	CodeBlacklisted:           entity.ErrBlacklisted,
	CodeAssetNotFound:         entity.ErrAssetNotFound,
	CodeInvalidAmount:         entity.ErrInvalidAmount,
}

// Transition is a call of a contract transition, signed by the gateway on
// behalf of Sender.
type Transition struct {
	Contract   string     `json:"contract"`
	Transition string     `json:"transition"`
	Sender     string     `json:"sender"`
	Params     zil.Params `json:"params"`
}

type Receipt struct {
	Success bool       `json:"success"`
	TxId    string     `json:"txId"`
	Events  []EventLog `json:"events"`
}

type EventLog struct {
	EventName string     `json:"_eventname"`
	Params    zil.Params `json:"params"`
}

func (r Receipt) Event(name string) (EventLog, bool) {
	for _, e := range r.Events {
		if e.EventName == name {
			return e, true
		}
	}
	return EventLog{}, false
}

type Provider struct {
	rpcClient *rpcClient
}

func NewProvider(rpcClient *rpcClient) *Provider {
	return &Provider{rpcClient: rpcClient}
}

func (p *Provider) GetNetworkId() (string, error) {
	response, err := p.call("GetNetworkId")
	if err != nil {
		return "", err
	}

	return response.ResultAsString()
}

// GetSmartContractSubState reads one field of a contract's state, narrowed by
// map indices. A missing entry decodes to an empty state.
func (p *Provider) GetSmartContractSubState(contract, field string, indices ...string) (map[string]json.RawMessage, error) {
	if indices == nil {
		indices = []string{}
	}
	response, err := p.call("GetSmartContractSubState", contract, field, indices)
	if err != nil {
		return nil, err
	}

	state := map[string]json.RawMessage{}
	if string(response.Result) == "null" || len(response.Result) == 0 {
		return state, nil
	}
	if err := response.ResultInto(&state); err != nil {
		return nil, err
	}

	return state, nil
}

func (p *Provider) CallTransition(t Transition) (*Receipt, error) {
	response, err := p.call("CallTransition", t)
	if err != nil {
		return nil, err
	}

	var receipt Receipt
	if err := response.ResultInto(&receipt); err != nil {
		return nil, err
	}
	if !receipt.Success {
		return nil, fmt.Errorf("%s: transition %s was not applied", t.Contract, t.Transition)
	}

	return &receipt, nil
}

func (p *Provider) GetMembershipAssets(registry string) ([]entity.Asset, error) {
	response, err := p.call("GetMembershipAssets", registry)
	if err != nil {
		return nil, err
	}

	assets := make([]entity.Asset, 0)
	if err := response.ResultInto(&assets); err != nil {
		return nil, err
	}

	return assets, nil
}

func (p *Provider) GetAsset(registry string, id uint64) (*entity.Asset, error) {
	response, err := p.call("GetAsset", registry, strconv.FormatUint(id, 10))
	if err != nil {
		return nil, err
	}

	var asset entity.Asset
	if err := response.ResultInto(&asset); err != nil {
		return nil, err
	}

	return &asset, nil
}

func (p *Provider) call(method string, params ...interface{}) (*rpcResponse, error) {
	response, err := p.rpcClient.call(method, params)
	if err != nil {
		return nil, err
	}

	if response.Error != nil {
		return nil, mapError(method, *response.Error)
	}

	return response, nil
}

func mapError(method string, rpcErr RPCError) error {
	if sentinel, ok := codeErrors[rpcErr.Code]; ok {
		return fmt.Errorf("%w: %s", sentinel, rpcErr.Message)
	}
	if rpcErr.Code == CodeNodeBusy {
		return entity.NewTransientError(method, rpcErr)
	}
	return rpcErr
}
