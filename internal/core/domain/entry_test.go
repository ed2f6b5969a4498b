package domain

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePostingSet_Balanced(t *testing.T) {
	w1, op := uuid.New(), uuid.New()
	err := ValidatePostingSet([]PostingInput{
		{AccountID: w1, Amount: 10000, Currency: "USD"},
		{AccountID: op, Amount: -10000, Currency: "USD"},
	})
	assert.NoError(t, err)
}

func TestValidatePostingSet_SinglePosting(t *testing.T) {
	err := ValidatePostingSet([]PostingInput{
		{AccountID: uuid.New(), Amount: 500, Currency: "USD"},
	})
	assert.ErrorIs(t, err, ErrInvalidPostingSet)
}

func TestValidatePostingSet_Unbalanced(t *testing.T) {
	err := ValidatePostingSet([]PostingInput{
		{AccountID: uuid.New(), Amount: 500, Currency: "USD"},
		{AccountID: uuid.New(), Amount: -400, Currency: "USD"},
	})
	assert.ErrorIs(t, err, ErrUnbalancedEntry)
}

func TestValidatePostingSet_PerCurrency(t *testing.T) {
	// Each currency subset must independently sum to zero.
	err := ValidatePostingSet([]PostingInput{
		{AccountID: uuid.New(), Amount: 10000, Currency: "USD"},
		{AccountID: uuid.New(), Amount: -10000, Currency: "USD"},
		{AccountID: uuid.New(), Amount: 9200, Currency: "EUR"},
		{AccountID: uuid.New(), Amount: -9200, Currency: "EUR"},
	})
	assert.NoError(t, err)

	err = ValidatePostingSet([]PostingInput{
		{AccountID: uuid.New(), Amount: 10000, Currency: "USD"},
		{AccountID: uuid.New(), Amount: -9200, Currency: "EUR"},
	})
	assert.ErrorIs(t, err, ErrUnbalancedEntry)
}

func TestValidatePostingSet_ZeroAmount(t *testing.T) {
	err := ValidatePostingSet([]PostingInput{
		{AccountID: uuid.New(), Amount: 0, Currency: "USD"},
		{AccountID: uuid.New(), Amount: 0, Currency: "USD"},
	})
	assert.ErrorIs(t, err, ErrZeroAmountPosting)
}

func TestValidatePostingSet_DuplicateAccount(t *testing.T) {
	w1, op := uuid.New(), uuid.New()
	err := ValidatePostingSet([]PostingInput{
		{AccountID: w1, Amount: 500, Currency: "USD"},
		{AccountID: w1, Amount: -700, Currency: "USD"},
		{AccountID: op, Amount: 200, Currency: "USD"},
	})
	assert.ErrorIs(t, err, ErrDuplicateAccountID)

	// Same account in two currencies is fine.
	err = ValidatePostingSet([]PostingInput{
		{AccountID: w1, Amount: 500, Currency: "USD"},
		{AccountID: op, Amount: -500, Currency: "USD"},
		{AccountID: w1, Amount: -400, Currency: "EUR"},
		{AccountID: op, Amount: 400, Currency: "EUR"},
	})
	assert.NoError(t, err)
}

func TestValidatePostingSet_SumOverflow(t *testing.T) {
	err := ValidatePostingSet([]PostingInput{
		{AccountID: uuid.New(), Amount: math.MaxInt64, Currency: "USD"},
		{AccountID: uuid.New(), Amount: 1, Currency: "USD"},
	})
	assert.ErrorIs(t, err, ErrAmountOverflow)
}

func TestJournalEntry_NegatedLines(t *testing.T) {
	w1, op := uuid.New(), uuid.New()
	entry := &JournalEntry{
		ID: uuid.New(),
		Postings: []Posting{
			{AccountID: w1, Amount: 10000, Currency: "USD"},
			{AccountID: op, Amount: -10000, Currency: "USD"},
		},
	}

	lines, err := entry.NegatedLines()
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(-10000), lines[0].Amount)
	assert.Equal(t, int64(10000), lines[1].Amount)
	assert.Equal(t, w1, lines[0].AccountID)

	// Negation of a balanced set is still balanced.
	assert.NoError(t, ValidatePostingSet(lines))
}

func TestAccount_IsPostable(t *testing.T) {
	a := &Account{Status: AccountStatusActive}
	assert.True(t, a.IsPostable())

	a.Status = AccountStatusFrozen
	assert.False(t, a.IsPostable())

	a.Status = AccountStatusClosed
	assert.False(t, a.IsPostable())
}

func TestAccount_CanTransitionTo(t *testing.T) {
	a := &Account{Status: AccountStatusActive}
	assert.True(t, a.CanTransitionTo(AccountStatusFrozen))
	assert.True(t, a.CanTransitionTo(AccountStatusClosed))
	assert.False(t, a.CanTransitionTo(AccountStatusActive))

	a.Status = AccountStatusClosed
	assert.False(t, a.CanTransitionTo(AccountStatusActive), "closed is terminal")
}

func TestValidateParentChain_Cycle(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	accounts := map[uuid.UUID]*Account{
		b: {ID: b, ParentID: &c},
		c: {ID: c, ParentID: &a}, // c points back at the candidate
	}
	lookup := func(id uuid.UUID) (*Account, bool) {
		acc, ok := accounts[id]
		return acc, ok
	}

	err := ValidateParentChain(a, &b, lookup)
	assert.ErrorIs(t, err, ErrHierarchyCycle)

	// Acyclic chain passes.
	accounts[c] = &Account{ID: c}
	assert.NoError(t, ValidateParentChain(a, &b, lookup))
}
