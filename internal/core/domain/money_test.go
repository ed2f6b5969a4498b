package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Add(t *testing.T) {
	a := NewMoney(10000, "USD")
	b := NewMoney(-4000, "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, NewMoney(6000, "USD"), sum)
}

func TestMoney_Add_CurrencyMismatch(t *testing.T) {
	_, err := NewMoney(100, "USD").Add(NewMoney(100, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_Add_Overflow(t *testing.T) {
	_, err := NewMoney(math.MaxInt64, "USD").Add(NewMoney(1, "USD"))
	assert.ErrorIs(t, err, ErrAmountOverflow)

	_, err = NewMoney(math.MinInt64, "USD").Add(NewMoney(-1, "USD"))
	assert.ErrorIs(t, err, ErrAmountOverflow)
}

func TestMoney_Sub(t *testing.T) {
	diff, err := NewMoney(500, "EUR").Sub(NewMoney(200, "EUR"))
	require.NoError(t, err)
	assert.Equal(t, int64(300), diff.Amount)

	_, err = NewMoney(0, "EUR").Sub(NewMoney(0, "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_Negate(t *testing.T) {
	n, err := NewMoney(42, "GBP").Negate()
	require.NoError(t, err)
	assert.Equal(t, int64(-42), n.Amount)

	_, err = NewMoney(math.MinInt64, "GBP").Negate()
	assert.ErrorIs(t, err, ErrAmountOverflow)
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "10000 USD", NewMoney(10000, "USD").String())
	assert.True(t, NewMoney(0, "USD").IsZero())
}
