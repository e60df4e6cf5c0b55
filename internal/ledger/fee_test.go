package ledger

import (
	"math/big"
	"testing"

	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenOwner = acct(100)
	treasury   = acct(101)
	giveaway   = acct(102)
)

func newFeeRail(t *testing.T, fees Fees) (*Book, *FeeRail) {
	t.Helper()
	book := NewBook("CRNL")
	rail, err := NewFeeRail(book, tokenOwner, treasury, giveaway, fees)
	require.NoError(t, err)
	return book, rail
}

func TestFeeRailTakesFeesFromRecipient(t *testing.T) {
	book, rail := newFeeRail(t, Fees{MemberGiveaway: 2, Marketing: 2, Developer: 1})
	require.NoError(t, book.Mint(acct(1), big.NewInt(1000)))

	require.NoError(t, rail.Transfer(acct(1), acct(2), big.NewInt(1000)))

	assert.Equal(t, int64(0), balance(t, rail, acct(1)))
	assert.Equal(t, int64(950), balance(t, rail, acct(2)))
	assert.Equal(t, int64(20), balance(t, rail, giveaway))
	assert.Equal(t, int64(30), balance(t, rail, treasury))
}

func TestFeeRailTransferFromChargesOwnerExactAmount(t *testing.T) {
	book, rail := newFeeRail(t, Fees{MemberGiveaway: 5, Marketing: 5, Developer: 5})
	require.NoError(t, book.Mint(acct(1), big.NewInt(200)))
	require.NoError(t, book.Approve(acct(1), acct(4), big.NewInt(200)))

	require.NoError(t, rail.TransferFrom(acct(4), acct(1), acct(3), big.NewInt(200)))

	assert.Equal(t, int64(0), balance(t, rail, acct(1)))
	assert.Equal(t, int64(170), balance(t, rail, acct(3)))
	assert.Equal(t, int64(10), balance(t, rail, giveaway))
	assert.Equal(t, int64(20), balance(t, rail, treasury))
}

func TestFeeRailExclusion(t *testing.T) {
	book, rail := newFeeRail(t, Fees{MemberGiveaway: 5, Marketing: 5, Developer: 5})
	require.NoError(t, book.Mint(tokenOwner, big.NewInt(100)))

	// the token owner is excluded by default
	require.NoError(t, rail.Transfer(tokenOwner, acct(2), big.NewInt(100)))
	assert.Equal(t, int64(100), balance(t, rail, acct(2)))

	assert.ErrorIs(t, rail.ExcludeFromFees(acct(2), acct(3)), entity.ErrAuthorization)

	require.NoError(t, rail.ExcludeFromFees(tokenOwner, acct(3)))
	assert.True(t, rail.ExcludedFromFees(acct(3)))
	require.NoError(t, rail.Transfer(acct(2), acct(3), big.NewInt(100)))
	assert.Equal(t, int64(100), balance(t, rail, acct(3)))

	require.NoError(t, rail.IncludeInFees(tokenOwner, acct(3)))
	assert.False(t, rail.ExcludedFromFees(acct(3)))
}

func TestFeeRailBlacklist(t *testing.T) {
	book, rail := newFeeRail(t, Fees{})
	require.NoError(t, book.Mint(acct(1), big.NewInt(100)))
	require.NoError(t, book.Mint(acct(2), big.NewInt(100)))
	require.NoError(t, book.Approve(acct(2), acct(1), big.NewInt(100)))

	require.NoError(t, rail.Blacklist(tokenOwner, acct(2)))
	assert.True(t, rail.Blacklisted(acct(2)))

	err := rail.Transfer(acct(1), acct(2), big.NewInt(1))
	assert.ErrorIs(t, err, entity.ErrBlacklisted)
	assert.Contains(t, err.Error(), "send tokens to")

	err = rail.Transfer(acct(2), acct(1), big.NewInt(1))
	assert.ErrorIs(t, err, entity.ErrBlacklisted)
	assert.Contains(t, err.Error(), "you have been blacklisted")

	err = rail.TransferFrom(acct(1), acct(2), acct(1), big.NewInt(1))
	assert.ErrorIs(t, err, entity.ErrBlacklisted)
	assert.Contains(t, err.Error(), "spend tokens from")

	require.NoError(t, rail.Unblacklist(tokenOwner, acct(2)))
	require.NoError(t, rail.Transfer(acct(2), acct(1), big.NewInt(1)))
	assert.Equal(t, int64(101), balance(t, rail, acct(1)))
}

func TestFeeRailLimits(t *testing.T) {
	_, err := NewFeeRail(NewBook("CRNL"), tokenOwner, treasury, giveaway, Fees{Marketing: 6})
	assert.ErrorIs(t, err, entity.ErrInvalidPercent)

	_, rail := newFeeRail(t, Fees{})
	assert.ErrorIs(t, rail.UpdateFees(tokenOwner, Fees{Developer: 6}), entity.ErrInvalidPercent)
	assert.ErrorIs(t, rail.UpdateFees(acct(5), Fees{Developer: 1}), entity.ErrAuthorization)

	require.NoError(t, rail.UpdateFees(tokenOwner, Fees{MemberGiveaway: 5, Marketing: 5, Developer: 5}))
	assert.Equal(t, Fees{MemberGiveaway: 5, Marketing: 5, Developer: 5}, rail.Fees())
}
