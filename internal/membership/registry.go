package membership

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/ledger"
	"math/big"
	"sort"
	"sync"
	"time"
)

type Config struct {
	// Address is the registry's own account. It receives payments and takes
	// custody of burned assets.
	Address     entity.Account
	Owner       entity.Account
	Marketplace entity.Account
	Price       *big.Int
	TokenURI    string
	ListingFee  *big.Int
}

// Registry owns the membership assets, the active membership index, the
// one-shot discounts and the admin set. Every mutating call is atomic.
type Registry struct {
	mu sync.Mutex

	address     entity.Account
	owner       entity.Account
	marketplace entity.Account
	rail        ledger.TokenRail
	clock       func() time.Time

	price      *big.Int
	tokenURI   string
	listingFee *big.Int

	lastId    uint64
	assets    map[uint64]*entity.Asset
	members   map[entity.Account]int
	discounts map[entity.Account]uint8
	admins    map[entity.Account]bool
	operators map[entity.Account]map[entity.Account]bool
}

type Option func(r *Registry)

func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		r.clock = clock
	}
}

func New(rail ledger.TokenRail, cfg Config, opts ...Option) *Registry {
	r := &Registry{
		address:     cfg.Address,
		owner:       cfg.Owner,
		marketplace: cfg.Marketplace,
		rail:        rail,
		clock:       time.Now,
		price:       entity.Copy(cfg.Price),
		tokenURI:    cfg.TokenURI,
		listingFee:  entity.Copy(cfg.ListingFee),
		assets:      make(map[uint64]*entity.Asset),
		members:     make(map[entity.Account]int),
		discounts:   make(map[entity.Account]uint8),
		admins:      make(map[entity.Account]bool),
		operators:   make(map[entity.Account]map[entity.Account]bool),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Registry) Address() entity.Account {
	return r.address
}

func (r *Registry) Owner() entity.Account {
	return r.owner
}

func (r *Registry) Marketplace() entity.Account {
	return r.marketplace
}

// exempt accounts never count as members and are never billed.
func (r *Registry) exempt(account entity.Account) bool {
	return account == r.owner || account == r.marketplace || account == r.address
}

func (r *Registry) AddressIsMember(account entity.Account) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.members[account] > 0
}

func (r *Registry) MembershipCount(account entity.Account) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.members[account]
}

func (r *Registry) MembershipPrice() *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return entity.Copy(r.price)
}

func (r *Registry) MembershipTokenURI() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.tokenURI
}

func (r *Registry) Asset(id uint64) (entity.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, err := r.get(id)
	if err != nil {
		return entity.Asset{}, err
	}
	return asset.Clone(), nil
}

func (r *Registry) OwnerOf(id uint64) (entity.Account, error) {
	asset, err := r.Asset(id)
	if err != nil {
		return entity.NoAccount, err
	}
	return asset.Owner, nil
}

func (r *Registry) ListingFee(id uint64) (*big.Int, error) {
	asset, err := r.Asset(id)
	if err != nil {
		return nil, err
	}
	return asset.ListingFee, nil
}

func (r *Registry) WhitelistAddress(id uint64) (entity.Account, error) {
	asset, err := r.Asset(id)
	if err != nil {
		return entity.NoAccount, err
	}
	return asset.WhitelistAddress, nil
}

func (r *Registry) MetadataURI(id uint64) (string, error) {
	asset, err := r.Asset(id)
	if err != nil {
		return "", err
	}
	return asset.MetadataURI, nil
}

// MembershipTokenIds returns every Membership typed asset id ever minted,
// burned ones included.
func (r *Registry) MembershipTokenIds() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]uint64, 0)
	for _, asset := range r.sorted() {
		if asset.IsMembership() {
			ids = append(ids, asset.Id)
		}
	}
	return ids
}

// ActiveMemberships is a snapshot of the active membership index in id order.
func (r *Registry) ActiveMemberships() []entity.Asset {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make([]entity.Asset, 0)
	for _, asset := range r.sorted() {
		if asset.IsMembership() && !asset.Burned && !r.exempt(asset.Owner) {
			active = append(active, asset.Clone())
		}
	}
	return active
}

func (r *Registry) AssetsOf(account entity.Account) []entity.Asset {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := make([]entity.Asset, 0)
	for _, asset := range r.sorted() {
		if asset.Owner == account {
			owned = append(owned, asset.Clone())
		}
	}
	return owned
}

func (r *Registry) UserTokenURIs(account entity.Account) []string {
	uris := make([]string, 0)
	for _, asset := range r.AssetsOf(account) {
		uris = append(uris, asset.MetadataURI)
	}
	return uris
}

func (r *Registry) get(id uint64) (*entity.Asset, error) {
	asset, ok := r.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", entity.ErrAssetNotFound, id)
	}
	return asset, nil
}

func (r *Registry) sorted() []*entity.Asset {
	assets := make([]*entity.Asset, 0, len(r.assets))
	for _, asset := range r.assets {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Id < assets[j].Id })
	return assets
}

func (r *Registry) create(owner entity.Account, typeId entity.AssetType, uri string, listingFee *big.Int, lastPaidAt time.Time) *entity.Asset {
	r.lastId++
	asset := &entity.Asset{
		Contract:    r.address,
		Id:          r.lastId,
		TypeId:      typeId,
		LastPaidAt:  lastPaidAt,
		ListingFee:  entity.Copy(listingFee),
		MetadataURI: uri,
	}
	r.assets[asset.Id] = asset
	r.reassign(asset, owner)

	return asset
}

// reassign moves an asset and keeps the membership index in step.
func (r *Registry) reassign(asset *entity.Asset, to entity.Account) {
	from := asset.Owner
	asset.Owner = to

	if !asset.IsMembership() {
		return
	}
	if from != entity.NoAccount && !r.exempt(from) {
		r.members[from]--
		if r.members[from] <= 0 {
			delete(r.members, from)
		}
	}
	if !r.exempt(to) {
		r.members[to]++
	}
}

func (r *Registry) onlyOwner(caller entity.Account) error {
	if caller != r.owner {
		return fmt.Errorf("%w: only the owner can do this", entity.ErrAuthorization)
	}
	return nil
}

func (r *Registry) onlyAdmin(caller entity.Account) error {
	if !r.admins[caller] {
		return fmt.Errorf("%w: only an admin can do this", entity.ErrAuthorization)
	}
	return nil
}
