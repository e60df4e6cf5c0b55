package entity

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		price   int64
		percent uint8
		want    int64
	}{
		{5000, 80, 1000},
		{5000, 0, 5000},
		{5000, 100, 0},
		{999, 50, 499},
		{10, 150, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d at %d%%", tt.price, tt.percent), func(t *testing.T) {
			got := ApplyDiscount(big.NewInt(tt.price), tt.percent)
			assert.Equal(t, big.NewInt(tt.want), got)
		})
	}
}

func TestApplyDiscountDoesNotMutatePrice(t *testing.T) {
	price := big.NewInt(5000)
	ApplyDiscount(price, 80)
	assert.Equal(t, big.NewInt(5000), price)
}

func TestParseAmount(t *testing.T) {
	a, err := ParseAmount("123456789012345678901234567890")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", a.String())

	_, err = ParseAmount("-1")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount("abc")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAssetDue(t *testing.T) {
	now := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	period := 30 * 24 * time.Hour

	asset := Asset{LastPaidAt: now.Add(-period)}
	assert.True(t, asset.Due(now, period))

	asset.LastPaidAt = now.Add(-period + time.Second)
	assert.False(t, asset.Due(now, period))
}

func TestIsTransient(t *testing.T) {
	err := NewTransientError("charge", errors.New("connection reset"))
	assert.True(t, IsTransient(err))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsTransient(ErrInsufficientFunds))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIsPaymentFailure(t *testing.T) {
	assert.True(t, IsPaymentFailure(fmt.Errorf("%w: no balance", ErrInsufficientFunds)))
	assert.True(t, IsPaymentFailure(ErrInsufficientAllowance))
	assert.False(t, IsPaymentFailure(ErrBlacklisted))
	assert.False(t, IsPaymentFailure(NewTransientError("charge", errors.New("timeout"))))
}
