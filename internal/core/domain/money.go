package domain

import (
	"fmt"
	"math"
)

// Money is an exact monetary amount in minor units (cents, pence, ...)
// tagged with an ISO 4217 currency code. Floating point is never used;
// arithmetic is checked and fails instead of wrapping.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney creates a Money value.
func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Add returns m + other. Fails on currency mismatch or int64 overflow.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	sum, ok := checkedAdd(m.Amount, other.Amount)
	if !ok {
		return Money{}, ErrAmountOverflow
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Sub returns m - other. Fails on currency mismatch or int64 overflow.
func (m Money) Sub(other Money) (Money, error) {
	neg, err := other.Negate()
	if err != nil {
		return Money{}, err
	}
	return m.Add(neg)
}

// Negate returns -m. Fails on overflow (negating math.MinInt64).
func (m Money) Negate() (Money, error) {
	if m.Amount == math.MinInt64 {
		return Money{}, ErrAmountOverflow
	}
	return Money{Amount: -m.Amount, Currency: m.Currency}, nil
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// String renders the raw minor-unit amount with its currency, e.g. "10000 USD".
func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}

// checkedAdd adds two int64 values and reports whether the result fits.
func checkedAdd(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, false
	}
	return a + b, true
}
