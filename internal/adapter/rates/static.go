// Package rates provides exchange rate sources for the conversion
// service.
package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StaticSource implements ports.RateSource over a fixed rate table.
// Suitable for deployments where rates are supplied by configuration
// and refreshed by restart; a live feed would implement the same port.
type StaticSource struct {
	rates map[string]decimal.Decimal
}

// NewStaticSource builds a StaticSource from "FROM/TO" -> decimal-string
// pairs. The inverse of each configured pair is derived automatically
// unless configured explicitly.
func NewStaticSource(pairs map[string]string) (*StaticSource, error) {
	rates := make(map[string]decimal.Decimal, 2*len(pairs))
	for pair, raw := range pairs {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing rate for %s: %w", pair, err)
		}
		if rate.Sign() <= 0 {
			return nil, fmt.Errorf("rate for %s must be positive, got %s", pair, raw)
		}
		rates[pair] = rate
	}
	configured := make([]string, 0, len(rates))
	for pair := range rates {
		configured = append(configured, pair)
	}
	for _, pair := range configured {
		from, to, ok := strings.Cut(pair, "/")
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("rate pair %q is not FROM/TO", pair)
		}
		inverse := to + "/" + from
		if _, ok := rates[inverse]; !ok {
			rates[inverse] = decimal.NewFromInt(1).DivRound(rates[pair], 12)
		}
	}
	return &StaticSource{rates: rates}, nil
}

// Rate returns the configured from/to rate. asOf is ignored: a static
// table has exactly one rate per pair.
func (s *StaticSource) Rate(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error) {
	rate, ok := s.rates[from+"/"+to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no rate configured for %s/%s", from, to)
	}
	return rate, nil
}
