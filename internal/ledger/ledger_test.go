package ledger

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acct(n int) entity.Account {
	return entity.Account(fmt.Sprintf("0x%040x", n))
}

func balance(t *testing.T, rail TokenRail, a entity.Account) int64 {
	t.Helper()
	b, err := rail.BalanceOf(a)
	require.NoError(t, err)
	return b.Int64()
}

func TestBookTransfer(t *testing.T) {
	book := NewBook("CRNL")
	require.NoError(t, book.Mint(acct(1), big.NewInt(100)))

	require.NoError(t, book.Transfer(acct(1), acct(2), big.NewInt(40)))
	assert.Equal(t, int64(60), balance(t, book, acct(1)))
	assert.Equal(t, int64(40), balance(t, book, acct(2)))
	assert.Equal(t, big.NewInt(100), book.TotalSupply())

	err := book.Transfer(acct(2), acct(1), big.NewInt(41))
	assert.ErrorIs(t, err, entity.ErrInsufficientFunds)
	assert.Equal(t, int64(40), balance(t, book, acct(2)))
}

func TestBookTransferFrom(t *testing.T) {
	book := NewBook("CRNL")
	require.NoError(t, book.Mint(acct(1), big.NewInt(100)))

	err := book.TransferFrom(acct(9), acct(1), acct(9), big.NewInt(10))
	assert.ErrorIs(t, err, entity.ErrInsufficientAllowance)

	require.NoError(t, book.Approve(acct(1), acct(9), big.NewInt(500)))
	err = book.TransferFrom(acct(9), acct(1), acct(9), big.NewInt(200))
	assert.ErrorIs(t, err, entity.ErrInsufficientFunds)

	require.NoError(t, book.TransferFrom(acct(9), acct(1), acct(3), big.NewInt(75)))
	assert.Equal(t, int64(25), balance(t, book, acct(1)))
	assert.Equal(t, int64(75), balance(t, book, acct(3)))

	allowance, err := book.Allowance(acct(1), acct(9))
	require.NoError(t, err)
	assert.Equal(t, int64(425), allowance.Int64())
}

func TestBookRejectsNegativeAmounts(t *testing.T) {
	book := NewBook("CRNL")
	assert.ErrorIs(t, book.Mint(acct(1), big.NewInt(-1)), entity.ErrInvalidAmount)
	assert.ErrorIs(t, book.Transfer(acct(1), acct(2), big.NewInt(-1)), entity.ErrInvalidAmount)
	assert.ErrorIs(t, book.Approve(acct(1), acct(2), nil), entity.ErrInvalidAmount)
}

func TestNativeBook(t *testing.T) {
	native := NewNativeBook()
	native.Credit(acct(1), big.NewInt(10))

	require.NoError(t, native.SendNative(acct(1), acct(2), big.NewInt(4)))
	assert.Equal(t, big.NewInt(6), native.NativeBalance(acct(1)))
	assert.Equal(t, big.NewInt(4), native.NativeBalance(acct(2)))

	assert.ErrorIs(t, native.SendNative(acct(2), acct(1), big.NewInt(5)), entity.ErrInsufficientFunds)
}
