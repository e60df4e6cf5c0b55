package marketplace

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/event"
	"go.uber.org/zap"
	"math/big"
	"sort"
)

// CreateMarketItem takes tokenId of contract into custody and lists it at
// price. fee is the native listing fee attached by seller and must match
// the asset's listing fee, or the default listing price when it has none.
func (e *Escrow) CreateMarketItem(seller, contract entity.Account, tokenId uint64, price, fee *big.Int) (entity.MarketItem, error) {
	e.mu.Lock()
	item, err := e.createMarketItem(seller, contract, tokenId, price, entity.Copy(fee))
	e.mu.Unlock()

	if err != nil {
		zap.L().With(zap.Error(err), zap.String("contract", contract.String()), zap.Uint64("tokenId", tokenId)).
			Warn("Escrow: Listing refused")
		return entity.MarketItem{}, err
	}

	zap.L().With(
		zap.Uint64("itemId", item.Id),
		zap.String("contract", contract.String()),
		zap.Uint64("tokenId", tokenId),
		zap.String("seller", seller.String()),
		zap.String("price", item.Price.String()),
	).Info("Escrow: Market item created")
	event.EmitEvent(event.MarketItemCreatedEvent, item)

	return item, nil
}

func (e *Escrow) createMarketItem(seller, contract entity.Account, tokenId uint64, price, fee *big.Int) (entity.MarketItem, error) {
	lc, err := e.whitelisted(contract)
	if err != nil {
		return entity.MarketItem{}, err
	}
	if price == nil || price.Sign() <= 0 {
		return entity.MarketItem{}, fmt.Errorf("%w: price must be at least 1", entity.ErrInvalidAmount)
	}

	expected, err := e.expectedListingFee(lc.asset, seller, tokenId)
	if err != nil {
		return entity.MarketItem{}, err
	}
	if fee.Cmp(expected) != 0 {
		return entity.MarketItem{}, fmt.Errorf("%w: listing fee is %s, got %s", entity.ErrListingFeeMismatch, expected, fee)
	}

	if lc.config.RequiresMembership && !e.house(seller) && !e.members.AddressIsMember(seller) {
		return entity.MarketItem{}, fmt.Errorf("%w: only members can list on this contract", entity.ErrMembershipRequired)
	}

	holder, err := lc.asset.OwnerOf(tokenId)
	if err != nil {
		return entity.MarketItem{}, err
	}
	if holder != seller {
		return entity.MarketItem{}, fmt.Errorf("%w: %s doesn't own the NFT %d", entity.ErrNotOwner, seller, tokenId)
	}

	if fee.Sign() > 0 {
		if err := e.native.SendNative(seller, e.address, fee); err != nil {
			return entity.MarketItem{}, err
		}
	}
	if err := lc.asset.TransferOwnership(seller, e.address, tokenId); err != nil {
		e.refund(seller, fee)
		return entity.MarketItem{}, err
	}

	whitelist := entity.NoAccount
	if seller == e.registryOwner {
		if wp, ok := lc.asset.(WhitelistProvider); ok {
			whitelist, _ = wp.WhitelistAddress(tokenId)
		}
	}

	uri := ""
	if mp, ok := lc.asset.(MetadataProvider); ok {
		uri, _ = mp.MetadataURI(tokenId)
	}

	e.lastItemId++
	item := &entity.MarketItem{
		Id:               e.lastItemId,
		Contract:         contract,
		TokenId:          tokenId,
		Seller:           seller,
		Price:            entity.Copy(price),
		WhitelistAddress: whitelist,
		MetadataURI:      uri,
		ListingFeePaid:   fee,
		ListedAt:         e.clock(),
	}
	e.items[item.Id] = item

	return item.Clone(), nil
}

func (e *Escrow) expectedListingFee(asset AssetContract, seller entity.Account, tokenId uint64) (*big.Int, error) {
	if e.house(seller) {
		return entity.Zero(), nil
	}

	if lp, ok := asset.(ListingFeeProvider); ok {
		fee, err := lp.ListingFee(tokenId)
		if err != nil {
			return nil, err
		}
		if fee != nil && fee.Sign() > 0 {
			return entity.Copy(fee), nil
		}
	}

	return entity.Copy(e.defaultListingPrice), nil
}

// CreateMarketSale sells item itemId to buyer. price must be the asking price.
func (e *Escrow) CreateMarketSale(buyer, contract entity.Account, itemId uint64, price *big.Int) (entity.MarketItem, error) {
	e.mu.Lock()
	item, err := e.createMarketSale(buyer, contract, itemId, price)
	e.mu.Unlock()

	if err != nil {
		zap.L().With(zap.Error(err), zap.String("contract", contract.String()), zap.Uint64("itemId", itemId)).
			Warn("Escrow: Sale refused")
		return entity.MarketItem{}, err
	}

	zap.L().With(
		zap.Uint64("itemId", item.Id),
		zap.String("buyer", buyer.String()),
		zap.String("seller", item.Seller.String()),
		zap.String("price", item.Price.String()),
	).Info("Escrow: Market sale created")
	event.EmitEvent(event.MarketSaleCreatedEvent, item)

	return item, nil
}

func (e *Escrow) createMarketSale(buyer, contract entity.Account, itemId uint64, price *big.Int) (entity.MarketItem, error) {
	lc, err := e.whitelisted(contract)
	if err != nil {
		return entity.MarketItem{}, err
	}

	item, err := e.item(contract, itemId)
	if err != nil {
		return entity.MarketItem{}, err
	}
	if item.Sold {
		return entity.MarketItem{}, fmt.Errorf("%w: %d", entity.ErrItemSold, itemId)
	}
	if price == nil || price.Cmp(item.Price) != 0 {
		return entity.MarketItem{}, fmt.Errorf("%w: please submit the asking price of %s", entity.ErrPriceMismatch, item.Price)
	}
	if !item.WhitelistAddress.IsZero() && buyer != item.WhitelistAddress {
		return entity.MarketItem{}, fmt.Errorf("%w: item %d is reserved for %s", entity.ErrWhitelistViolation, itemId, item.WhitelistAddress)
	}
	if lc.config.RequiresMembership && !e.house(buyer) && !e.members.AddressIsMember(buyer) {
		return entity.MarketItem{}, fmt.Errorf("%w: only members can buy on this contract", entity.ErrMembershipRequired)
	}

	rail := e.tokens[lc.config.PaymentToken]
	if err := rail.TransferFrom(e.address, buyer, item.Seller, item.Price); err != nil {
		return entity.MarketItem{}, err
	}

	if err := lc.asset.TransferOwnership(e.address, buyer, item.TokenId); err != nil {
		if rerr := rail.Transfer(item.Seller, buyer, item.Price); rerr != nil {
			zap.L().With(zap.Error(rerr), zap.Uint64("itemId", itemId)).Error("Escrow: Failed to return payment after failed delivery")
		}
		return entity.MarketItem{}, err
	}

	if item.ListingFeePaid.Sign() > 0 {
		if err := e.native.SendNative(e.address, e.owner, item.ListingFeePaid); err != nil {
			zap.L().With(zap.Error(err), zap.Uint64("itemId", itemId)).Error("Escrow: Failed to forward listing fee")
		}
	}

	item.Sold = true
	item.Buyer = buyer
	item.SoldAt = e.clock()

	return item.Clone(), nil
}

// CancelMarketSale returns the asset and the listing fee to the seller.
func (e *Escrow) CancelMarketSale(caller, contract entity.Account, itemId uint64) error {
	e.mu.Lock()
	item, err := e.cancelMarketSale(caller, contract, itemId)
	e.mu.Unlock()

	if err != nil {
		return err
	}

	zap.L().With(zap.Uint64("itemId", itemId), zap.String("seller", item.Seller.String())).Info("Escrow: Market sale cancelled")
	event.EmitEvent(event.MarketSaleCancelledEvent, item)

	return nil
}

func (e *Escrow) cancelMarketSale(caller, contract entity.Account, itemId uint64) (entity.MarketItem, error) {
	lc, ok := e.contracts[contract]
	if !ok {
		return entity.MarketItem{}, fmt.Errorf("%w: %s", entity.ErrUnknownContract, contract)
	}

	item, err := e.item(contract, itemId)
	if err != nil {
		return entity.MarketItem{}, err
	}
	if item.Sold {
		return entity.MarketItem{}, fmt.Errorf("%w: %d", entity.ErrItemSold, itemId)
	}
	if caller != item.Seller && caller != e.owner {
		return entity.MarketItem{}, fmt.Errorf("%w: you can only cancel your own NFT listings", entity.ErrAuthorization)
	}

	if err := lc.asset.TransferOwnership(e.address, item.Seller, item.TokenId); err != nil {
		return entity.MarketItem{}, err
	}
	e.refund(item.Seller, item.ListingFeePaid)
	delete(e.items, itemId)

	return item.Clone(), nil
}

func (e *Escrow) refund(to entity.Account, fee *big.Int) {
	if fee == nil || fee.Sign() == 0 {
		return
	}
	if err := e.native.SendNative(e.address, to, fee); err != nil {
		zap.L().With(zap.Error(err), zap.String("to", to.String())).Error("Escrow: Failed to refund listing fee")
	}
}

func (e *Escrow) item(contract entity.Account, itemId uint64) (*entity.MarketItem, error) {
	item, ok := e.items[itemId]
	if !ok || item.Contract != contract {
		return nil, fmt.Errorf("%w: %d", entity.ErrItemNotFound, itemId)
	}
	return item, nil
}

func (e *Escrow) MarketItem(itemId uint64) (entity.MarketItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, ok := e.items[itemId]
	if !ok {
		return entity.MarketItem{}, fmt.Errorf("%w: %d", entity.ErrItemNotFound, itemId)
	}
	return item.Clone(), nil
}

// FetchMarketItems returns the unsold items in id order.
func (e *Escrow) FetchMarketItems() []entity.MarketItem {
	return e.filter(func(item *entity.MarketItem) bool {
		return !item.Sold
	})
}

// FetchMyNFTs returns every item account sold, bought or has listed.
func (e *Escrow) FetchMyNFTs(account entity.Account) []entity.MarketItem {
	return e.filter(func(item *entity.MarketItem) bool {
		return item.Seller == account || item.Buyer == account
	})
}

func (e *Escrow) filter(keep func(item *entity.MarketItem) bool) []entity.MarketItem {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]entity.MarketItem, 0)
	for _, item := range e.items {
		if keep(item) {
			out = append(out, item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}
