package event

type Type string

const (
	MembershipMintedEvent     Type = "MembershipMintedEvent"
	MembershipChargedEvent    Type = "MembershipChargedEvent"
	MembershipBurnedEvent     Type = "MembershipBurnedEvent"
	AssetTransferredEvent     Type = "AssetTransferredEvent"
	MarketItemCreatedEvent    Type = "MarketItemCreatedEvent"
	MarketSaleCreatedEvent    Type = "MarketSaleCreatedEvent"
	MarketSaleCancelledEvent  Type = "MarketSaleCancelledEvent"
	NodeRewardsDepositedEvent Type = "NodeRewardsDepositedEvent"
	BillingRunCompletedEvent  Type = "BillingRunCompletedEvent"
)

