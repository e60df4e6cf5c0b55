package marketplace

import (
	"github.com/ZilDuck/membership-market/internal/entity"
	"math/big"
)

// AssetContract is the ownership primitive every listable contract provides.
type AssetContract interface {
	OwnerOf(tokenId uint64) (entity.Account, error)
	TransferOwnership(from, to entity.Account, tokenId uint64) error
}

// Contracts may also expose per token listing data. The escrow discovers
// these through type assertion and falls back to defaults.
type (
	ListingFeeProvider interface {
		ListingFee(tokenId uint64) (*big.Int, error)
	}

	WhitelistProvider interface {
		WhitelistAddress(tokenId uint64) (entity.Account, error)
	}

	MetadataProvider interface {
		MetadataURI(tokenId uint64) (string, error)
	}
)

type MembershipChecker interface {
	AddressIsMember(account entity.Account) bool
}

type listedContract struct {
	asset       AssetContract
	whitelisted bool
	config      entity.WhitelistedContract
}
