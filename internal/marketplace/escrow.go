package marketplace

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/ledger"
	"go.uber.org/zap"
	"math/big"
	"sort"
	"sync"
	"time"
)

type Config struct {
	// Address is the escrow's custody account for listed assets and held fees.
	Address entity.Account
	Owner   entity.Account
	// RegistryOwner listings carry the asset's whitelist spot. Defaults to Owner.
	RegistryOwner       entity.Account
	DefaultListingPrice *big.Int
}

// Escrow lists assets of whitelisted contracts, holds them until they are
// sold or cancelled and settles prices in the contract's payment token.
type Escrow struct {
	mu sync.Mutex

	address       entity.Account
	owner         entity.Account
	registryOwner entity.Account
	clock         func() time.Time

	tokens  map[entity.Account]ledger.TokenRail
	native  ledger.NativeRail
	members MembershipChecker

	defaultListingPrice *big.Int
	contracts           map[entity.Account]*listedContract
	items               map[uint64]*entity.MarketItem
	lastItemId          uint64
}

type Option func(e *Escrow)

func WithClock(clock func() time.Time) Option {
	return func(e *Escrow) {
		e.clock = clock
	}
}

func New(cfg Config, tokens map[entity.Account]ledger.TokenRail, native ledger.NativeRail, members MembershipChecker, opts ...Option) *Escrow {
	registryOwner := cfg.RegistryOwner
	if registryOwner.IsZero() {
		registryOwner = cfg.Owner
	}

	e := &Escrow{
		address:             cfg.Address,
		owner:               cfg.Owner,
		registryOwner:       registryOwner,
		clock:               time.Now,
		tokens:              tokens,
		native:              native,
		members:             members,
		defaultListingPrice: entity.Copy(cfg.DefaultListingPrice),
		contracts:           make(map[entity.Account]*listedContract),
		items:               make(map[uint64]*entity.MarketItem),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Escrow) Address() entity.Account {
	return e.address
}

func (e *Escrow) Owner() entity.Account {
	return e.owner
}

func (e *Escrow) SetDefaultListingPrice(caller entity.Account, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: listing price %v", entity.ErrInvalidAmount, amount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.onlyOwner(caller); err != nil {
		return err
	}
	e.defaultListingPrice = entity.Copy(amount)

	zap.L().With(zap.String("amount", amount.String())).Info("Escrow: Default listing price updated")
	return nil
}

func (e *Escrow) DefaultListingPrice() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return entity.Copy(e.defaultListingPrice)
}

// WhiteListNFTContract allows asset to be listed. Re-whitelisting replaces
// the payment token and membership requirement.
func (e *Escrow) WhiteListNFTContract(caller, contract entity.Account, asset AssetContract, paymentToken entity.Account, requiresMembership bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.onlyOwner(caller); err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("%w: no asset contract for %s", entity.ErrUnknownContract, contract)
	}
	if _, ok := e.tokens[paymentToken]; !ok {
		return fmt.Errorf("%w: unknown payment token %s", entity.ErrUnknownContract, paymentToken)
	}

	e.contracts[contract] = &listedContract{
		asset:       asset,
		whitelisted: true,
		config: entity.WhitelistedContract{
			Contract:           contract,
			PaymentToken:       paymentToken,
			RequiresMembership: requiresMembership,
		},
	}

	zap.L().With(
		zap.String("contract", contract.String()),
		zap.String("paymentToken", paymentToken.String()),
		zap.Bool("requiresMembership", requiresMembership),
	).Info("Escrow: Contract whitelisted")
	return nil
}

// UnWhiteListNFTContract stops new listings and sales. Open listings can
// still be cancelled.
func (e *Escrow) UnWhiteListNFTContract(caller, contract entity.Account) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.onlyOwner(caller); err != nil {
		return err
	}

	lc, ok := e.contracts[contract]
	if !ok || !lc.whitelisted {
		return fmt.Errorf("%w: %s", entity.ErrUnknownContract, contract)
	}
	lc.whitelisted = false

	zap.L().With(zap.String("contract", contract.String())).Info("Escrow: Contract removed from whitelist")
	return nil
}

func (e *Escrow) WhitelistedContracts() []entity.WhitelistedContract {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]entity.WhitelistedContract, 0)
	for _, lc := range e.contracts {
		if lc.whitelisted {
			out = append(out, lc.config)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Contract < out[j].Contract })
	return out
}

func (e *Escrow) whitelisted(contract entity.Account) (*listedContract, error) {
	lc, ok := e.contracts[contract]
	if !ok || !lc.whitelisted {
		return nil, fmt.Errorf("%w: %s is not whitelisted", entity.ErrUnknownContract, contract)
	}
	return lc, nil
}

// house accounts list for free and skip the membership requirement.
func (e *Escrow) house(account entity.Account) bool {
	return account == e.owner || account == e.registryOwner
}

func (e *Escrow) onlyOwner(caller entity.Account) error {
	if caller != e.owner {
		return fmt.Errorf("%w: only the marketplace owner can do this", entity.ErrAuthorization)
	}
	return nil
}
