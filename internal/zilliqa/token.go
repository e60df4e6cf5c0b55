package zilliqa

import (
	"encoding/json"
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/pkg/zil"
	"go.uber.org/zap"
	"math/big"
)

// Token is a fungible token contract reached through the ledger gateway.
type Token struct {
	service  Service
	contract entity.Account
}

func NewToken(service Service, contract entity.Account) *Token {
	return &Token{service, contract}
}

func (t *Token) BalanceOf(account entity.Account) (*big.Int, error) {
	state, err := t.service.GetSmartContractSubState(t.contract.String(), "balances", account.String())
	if err != nil {
		return nil, err
	}

	balances := map[string]string{}
	if raw, ok := state["balances"]; ok {
		if err := json.Unmarshal(raw, &balances); err != nil {
			return nil, err
		}
	}

	return parseAmount(balances[account.String()])
}

func (t *Token) Allowance(owner, spender entity.Account) (*big.Int, error) {
	state, err := t.service.GetSmartContractSubState(t.contract.String(), "allowances", owner.String(), spender.String())
	if err != nil {
		return nil, err
	}

	allowances := map[string]map[string]string{}
	if raw, ok := state["allowances"]; ok {
		if err := json.Unmarshal(raw, &allowances); err != nil {
			return nil, err
		}
	}

	return parseAmount(allowances[owner.String()][spender.String()])
}

func (t *Token) Transfer(from, to entity.Account, amount *big.Int) error {
	_, err := t.service.CallTransition(Transition{
		Contract:   t.contract.String(),
		Transition: "Transfer",
		Sender:     from.String(),
		Params: zil.Params{
			zil.Address("to", to.String()),
			zil.Uint128("amount", amount),
		},
	})
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("from", from.String()), zap.String("to", to.String())).Warn("Zilliqa: Transfer refused")
	}
	return err
}

func (t *Token) TransferFrom(spender, owner, to entity.Account, amount *big.Int) error {
	_, err := t.service.CallTransition(Transition{
		Contract:   t.contract.String(),
		Transition: "TransferFrom",
		Sender:     spender.String(),
		Params: zil.Params{
			zil.Address("from", owner.String()),
			zil.Address("to", to.String()),
			zil.Uint128("amount", amount),
		},
	})
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("from", owner.String()), zap.String("spender", spender.String())).Warn("Zilliqa: TransferFrom refused")
	}
	return err
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return entity.Zero(), nil
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	return amount, nil
}
