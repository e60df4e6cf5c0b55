package ledger

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"math/big"
	"sync"
)

// NativeBook holds native currency balances.
type NativeBook struct {
	mu       sync.Mutex
	balances map[entity.Account]*big.Int
}

func NewNativeBook() *NativeBook {
	return &NativeBook{balances: make(map[entity.Account]*big.Int)}
}

func (n *NativeBook) Credit(account entity.Account, amount *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.balances[account] = new(big.Int).Add(entity.Copy(n.balances[account]), entity.Copy(amount))
}

func (n *NativeBook) NativeBalance(account entity.Account) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return entity.Copy(n.balances[account])
}

func (n *NativeBook) SendNative(from, to entity.Account, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: send %v", entity.ErrInvalidAmount, amount)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	balance := entity.Copy(n.balances[from])
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s native, needs %s", entity.ErrInsufficientFunds, from, balance, amount)
	}

	n.balances[from] = balance.Sub(balance, amount)
	n.balances[to] = new(big.Int).Add(entity.Copy(n.balances[to]), amount)

	return nil
}
