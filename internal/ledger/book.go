package ledger

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"go.uber.org/zap"
	"math/big"
	"sync"
)

// Book is an in-process token ledger with ERC20 style allowances.
type Book struct {
	mu         sync.Mutex
	symbol     string
	supply     *big.Int
	balances   map[entity.Account]*big.Int
	allowances map[entity.Account]map[entity.Account]*big.Int
}

func NewBook(symbol string) *Book {
	return &Book{
		symbol:     symbol,
		supply:     new(big.Int),
		balances:   make(map[entity.Account]*big.Int),
		allowances: make(map[entity.Account]map[entity.Account]*big.Int),
	}
}

func (b *Book) Symbol() string {
	return b.symbol
}

func (b *Book) TotalSupply() *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return entity.Copy(b.supply)
}

func (b *Book) Mint(to entity.Account, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: mint %v", entity.ErrInvalidAmount, amount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.credit(to, amount)
	b.supply.Add(b.supply, amount)

	zap.L().With(zap.String("to", to.String()), zap.String("amount", amount.String())).Debug("Ledger: Mint")
	return nil
}

func (b *Book) Approve(owner, spender entity.Account, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: approve %v", entity.ErrInvalidAmount, amount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.allowances[owner]; !ok {
		b.allowances[owner] = make(map[entity.Account]*big.Int)
	}
	b.allowances[owner][spender] = entity.Copy(amount)

	return nil
}

func (b *Book) BalanceOf(account entity.Account) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return entity.Copy(b.balances[account]), nil
}

func (b *Book) Allowance(owner, spender entity.Account) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return entity.Copy(b.allowances[owner][spender]), nil
}

func (b *Book) Transfer(from, to entity.Account, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: transfer %v", entity.ErrInvalidAmount, amount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkBalance(from, amount); err != nil {
		return err
	}
	b.move(from, to, amount)

	return nil
}

func (b *Book) TransferFrom(spender, owner, to entity.Account, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: transferFrom %v", entity.ErrInvalidAmount, amount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	allowance := entity.Copy(b.allowances[owner][spender])
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s allows %s to spend %s %s, needs %s",
			entity.ErrInsufficientAllowance, owner, spender, allowance, b.symbol, amount)
	}
	if err := b.checkBalance(owner, amount); err != nil {
		return err
	}

	b.allowances[owner][spender] = allowance.Sub(allowance, amount)
	b.move(owner, to, amount)

	return nil
}

func (b *Book) checkBalance(account entity.Account, amount *big.Int) error {
	balance := entity.Copy(b.balances[account])
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s %s, needs %s",
			entity.ErrInsufficientFunds, account, balance, b.symbol, amount)
	}
	return nil
}

func (b *Book) move(from, to entity.Account, amount *big.Int) {
	b.balances[from] = new(big.Int).Sub(entity.Copy(b.balances[from]), amount)
	b.credit(to, amount)
}

func (b *Book) credit(to entity.Account, amount *big.Int) {
	b.balances[to] = new(big.Int).Add(entity.Copy(b.balances[to]), amount)
}
