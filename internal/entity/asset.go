package entity

import (
	"fmt"
	"github.com/gosimple/slug"
	"math/big"
	"strings"
	"time"
)

type AssetType uint8

const (
	OriginalAsset AssetType = iota
	MembershipAsset
	ServiceAsset
	GenericAsset
)

var assetTypeNames = map[AssetType]string{
	OriginalAsset:   "Original",
	MembershipAsset: "Membership",
	ServiceAsset:    "Service",
	GenericAsset:    "Generic",
}

func (t AssetType) String() string {
	if name, ok := assetTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("AssetType(%d)", uint8(t))
}

func ParseAssetType(name string) (AssetType, error) {
	for t, n := range assetTypeNames {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown asset type %q", name)
}

// Asset is a unique token held by the membership registry. Assets of type
// Membership are billable subscriptions.
type Asset struct {
	Contract         Account   `json:"contract"`
	Id               uint64    `json:"id"`
	Owner            Account   `json:"owner"`
	TypeId           AssetType `json:"typeId"`
	LastPaidAt       time.Time `json:"lastPaidAt"`
	ListingFee       *big.Int  `json:"listingFee"`
	WhitelistAddress Account   `json:"whitelistAddress,omitempty"`
	MetadataURI      string    `json:"metadataUri"`
	Burned           bool      `json:"burned"`
	// BurnedAt is the charge time of a burn on non payment, the burn time
	// otherwise.
	BurnedAt         time.Time `json:"burnedAt"`
}

func (a Asset) Slug() string {
	return CreateAssetSlug(a.Id, a.Contract)
}

func CreateAssetSlug(id uint64, contract Account) string {
	return slug.Make(fmt.Sprintf("asset-%d-%s", id, contract))
}

func (a Asset) IsMembership() bool {
	return a.TypeId == MembershipAsset
}

// Due reports whether a full billing period has elapsed since the last payment.
func (a Asset) Due(now time.Time, period time.Duration) bool {
	return now.Sub(a.LastPaidAt) >= period
}

func (a Asset) Clone() Asset {
	c := a
	c.ListingFee = Copy(a.ListingFee)
	return c
}
