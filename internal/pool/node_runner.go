package pool

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/event"
	"github.com/ZilDuck/membership-market/internal/ledger"
	"go.uber.org/zap"
	"math/big"
	"sort"
	"sync"
)

type MembershipChecker interface {
	AddressIsMember(account entity.Account) bool
}

type Config struct {
	Address    entity.Account
	Owner      entity.Account
	Price      *big.Int
	MaxSupply  uint64
	ListingFee *big.Int
	TokenURI   string
}

// NodeRunner is a fixed supply of tokens sold to members. Native rewards
// deposited by the owner are split across holders by holding.
type NodeRunner struct {
	mu sync.Mutex

	cfg     Config
	rail    ledger.TokenRail
	native  ledger.NativeRail
	members MembershipChecker

	lastId    uint64
	owners    map[uint64]entity.Account
	claimable map[entity.Account]*big.Int
}

type Deposit struct {
	Pool   entity.Account              `json:"pool"`
	Amount *big.Int                    `json:"amount"`
	Shares map[entity.Account]*big.Int `json:"shares"`
}

func New(cfg Config, rail ledger.TokenRail, native ledger.NativeRail, members MembershipChecker) *NodeRunner {
	cfg.Price = entity.Copy(cfg.Price)
	cfg.ListingFee = entity.Copy(cfg.ListingFee)

	return &NodeRunner{
		cfg:       cfg,
		rail:      rail,
		native:    native,
		members:   members,
		owners:    make(map[uint64]entity.Account),
		claimable: make(map[entity.Account]*big.Int),
	}
}

func (p *NodeRunner) Address() entity.Account {
	return p.cfg.Address
}

func (p *NodeRunner) MaxSupply() uint64 {
	return p.cfg.MaxSupply
}

func (p *NodeRunner) Minted() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.lastId
}

// Mint sells amount tokens to caller, checking funds, allowance and the
// remaining supply in that order.
func (p *NodeRunner) Mint(caller entity.Account, amount uint64) ([]uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if amount == 0 {
		return nil, fmt.Errorf("%w: mint at least one token", entity.ErrInvalidAmount)
	}
	if caller != p.cfg.Owner && !p.members.AddressIsMember(caller) {
		return nil, fmt.Errorf("%w: only members can participate in node runner", entity.ErrMembershipRequired)
	}

	cost := new(big.Int).Mul(p.cfg.Price, new(big.Int).SetUint64(amount))

	balance, err := p.rail.BalanceOf(caller)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(cost) < 0 {
		return nil, fmt.Errorf("%w: you don't have enough to pay for the node runner tokens", entity.ErrInsufficientFunds)
	}
	allowance, err := p.rail.Allowance(caller, p.cfg.Address)
	if err != nil {
		return nil, err
	}
	if allowance.Cmp(cost) < 0 {
		return nil, fmt.Errorf("%w: you haven't approved the pool to spend enough for the node runner tokens", entity.ErrInsufficientAllowance)
	}
	if err := p.checkCapacity(amount); err != nil {
		return nil, err
	}

	if err := p.rail.TransferFrom(p.cfg.Address, caller, p.cfg.Address, cost); err != nil {
		return nil, err
	}

	ids := p.assign(caller, amount)
	zap.L().With(zap.String("owner", caller.String()), zap.Uint64("amount", amount)).Info("NodeRunner: Tokens minted")

	return ids, nil
}

// CreateTokens mints without payment, for the owner's own allocations.
func (p *NodeRunner) CreateTokens(caller, to entity.Account, amount uint64) ([]uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.onlyOwner(caller); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: create at least one token", entity.ErrInvalidAmount)
	}
	if err := p.checkCapacity(amount); err != nil {
		return nil, err
	}

	return p.assign(to, amount), nil
}

func (p *NodeRunner) checkCapacity(amount uint64) error {
	if amount > p.cfg.MaxSupply-p.lastId {
		return fmt.Errorf("%w: only %d of %d node runner tokens left", entity.ErrCapacityExceeded, p.cfg.MaxSupply-p.lastId, p.cfg.MaxSupply)
	}
	return nil
}

func (p *NodeRunner) assign(to entity.Account, amount uint64) []uint64 {
	ids := make([]uint64, 0, amount)
	for i := uint64(0); i < amount; i++ {
		p.lastId++
		p.owners[p.lastId] = to
		ids = append(ids, p.lastId)
	}
	return ids
}

// DepositRewards takes value from the owner and credits every holder
// value*held/minted. Remainders stay in the pool.
func (p *NodeRunner) DepositRewards(caller entity.Account, value *big.Int) (Deposit, error) {
	p.mu.Lock()
	deposit, err := p.deposit(caller, value)
	p.mu.Unlock()

	if err != nil {
		return Deposit{}, err
	}

	zap.L().With(zap.String("amount", value.String()), zap.Int("holders", len(deposit.Shares))).Info("NodeRunner: Rewards deposited")
	event.EmitEvent(event.NodeRewardsDepositedEvent, deposit)

	return deposit, nil
}

func (p *NodeRunner) deposit(caller entity.Account, value *big.Int) (Deposit, error) {
	if err := p.onlyOwner(caller); err != nil {
		return Deposit{}, err
	}
	if value == nil || value.Sign() <= 0 {
		return Deposit{}, fmt.Errorf("%w: deposit %v", entity.ErrInvalidAmount, value)
	}
	if p.lastId == 0 {
		return Deposit{}, fmt.Errorf("%w: no node runner tokens minted yet", entity.ErrNothingToClaim)
	}

	if err := p.native.SendNative(caller, p.cfg.Address, value); err != nil {
		return Deposit{}, err
	}

	held := make(map[entity.Account]int64)
	for _, holder := range p.owners {
		held[holder]++
	}

	minted := new(big.Int).SetUint64(p.lastId)
	shares := make(map[entity.Account]*big.Int, len(held))
	for holder, count := range held {
		share := new(big.Int).Mul(value, big.NewInt(count))
		share.Quo(share, minted)
		shares[holder] = share
		p.claimable[holder] = new(big.Int).Add(entity.Copy(p.claimable[holder]), share)
	}

	return Deposit{Pool: p.cfg.Address, Amount: entity.Copy(value), Shares: shares}, nil
}

func (p *NodeRunner) Claimable(account entity.Account) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return entity.Copy(p.claimable[account])
}

func (p *NodeRunner) ClaimRewards(caller entity.Account) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	amount := entity.Copy(p.claimable[caller])
	if amount.Sign() == 0 {
		return nil, fmt.Errorf("%w: you don't have any node rewards to claim", entity.ErrNothingToClaim)
	}
	if err := p.native.SendNative(p.cfg.Address, caller, amount); err != nil {
		return nil, err
	}
	delete(p.claimable, caller)

	zap.L().With(zap.String("account", caller.String()), zap.String("amount", amount.String())).Info("NodeRunner: Rewards claimed")
	return amount, nil
}

// WithdrawFunds sends the token sale proceeds to the owner.
func (p *NodeRunner) WithdrawFunds(caller entity.Account) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.onlyOwner(caller); err != nil {
		return nil, err
	}

	balance, err := p.rail.BalanceOf(p.cfg.Address)
	if err != nil {
		return nil, err
	}
	if balance.Sign() > 0 {
		if err := p.rail.Transfer(p.cfg.Address, p.cfg.Owner, balance); err != nil {
			return nil, err
		}
	}
	return balance, nil
}

func (p *NodeRunner) OwnerOf(tokenId uint64) (entity.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	holder, ok := p.owners[tokenId]
	if !ok {
		return entity.NoAccount, fmt.Errorf("%w: %d", entity.ErrAssetNotFound, tokenId)
	}
	return holder, nil
}

func (p *NodeRunner) TransferOwnership(from, to entity.Account, tokenId uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	holder, ok := p.owners[tokenId]
	if !ok {
		return fmt.Errorf("%w: %d", entity.ErrAssetNotFound, tokenId)
	}
	if holder != from {
		return fmt.Errorf("%w: %s doesn't own the NFT %d", entity.ErrNotOwner, from, tokenId)
	}
	p.owners[tokenId] = to

	return nil
}

func (p *NodeRunner) ListingFee(tokenId uint64) (*big.Int, error) {
	if _, err := p.OwnerOf(tokenId); err != nil {
		return nil, err
	}
	return entity.Copy(p.cfg.ListingFee), nil
}

func (p *NodeRunner) MetadataURI(tokenId uint64) (string, error) {
	if _, err := p.OwnerOf(tokenId); err != nil {
		return "", err
	}
	return p.cfg.TokenURI, nil
}

func (p *NodeRunner) TokensOf(account entity.Account) []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]uint64, 0)
	for id, holder := range p.owners {
		if holder == account {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p *NodeRunner) onlyOwner(caller entity.Account) error {
	if caller != p.cfg.Owner {
		return fmt.Errorf("%w: only the pool owner can do this", entity.ErrAuthorization)
	}
	return nil
}
