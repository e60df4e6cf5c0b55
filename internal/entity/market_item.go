package entity

import (
	"fmt"
	"github.com/gosimple/slug"
	"math/big"
	"time"
)

type MarketItem struct {
	Id               uint64    `json:"id"`
	Contract         Account   `json:"contract"`
	TokenId          uint64    `json:"tokenId"`
	Seller           Account   `json:"seller"`
	Buyer            Account   `json:"buyer,omitempty"`
	Price            *big.Int  `json:"price"`
	Sold             bool      `json:"sold"`
	WhitelistAddress Account   `json:"whitelistAddress,omitempty"`
	MetadataURI      string    `json:"metadataUri"`
	ListingFeePaid   *big.Int  `json:"listingFeePaid"`
	ListedAt         time.Time `json:"listedAt"`
	SoldAt           time.Time `json:"soldAt,omitempty"`
}

func (i MarketItem) Slug() string {
	return CreateMarketItemSlug(i.Id)
}

func CreateMarketItemSlug(id uint64) string {
	return slug.Make(fmt.Sprintf("market-item-%d", id))
}

func (i MarketItem) Clone() MarketItem {
	c := i
	c.Price = Copy(i.Price)
	c.ListingFeePaid = Copy(i.ListingFeePaid)
	return c
}

type WhitelistedContract struct {
	Contract           Account `json:"contract"`
	PaymentToken       Account `json:"paymentToken"`
	RequiresMembership bool    `json:"requiresMembership"`
}
