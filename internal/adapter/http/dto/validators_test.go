package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStruct_TrimsStrings(t *testing.T) {
	parent := "  b2c3d4e5-0000-0000-0000-000000000000 "
	req := CreateAccountRequest{
		Name:     "  Cash Reserve  ",
		Type:     "asset",
		Currency: " USD ",
		ParentID: &parent,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "Cash Reserve", req.Name)
	assert.Equal(t, "USD", req.Currency)
	assert.Equal(t, "b2c3d4e5-0000-0000-0000-000000000000", *req.ParentID)
}

func TestSanitizeStruct_IgnoresNonStructs(t *testing.T) {
	s := "  unchanged by value  "
	SanitizeStruct(s) // not a pointer; no-op
	assert.Equal(t, "  unchanged by value  ", s)
}

func TestValidateCurrency(t *testing.T) {
	cases := map[string]bool{
		"USD":  true,
		"EUR":  true,
		"usd":  false,
		"US":   false,
		"USDX": false,
		"U5D":  false,
	}
	for input, want := range cases {
		assert.Equal(t, want, currencyRe.MatchString(input), "input %q", input)
	}
}
