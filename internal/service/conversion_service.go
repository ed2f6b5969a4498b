package service

import (
	"context"
	"fmt"
	"time"

	"ledger-core/internal/core/domain"
	"ledger-core/internal/core/ports"
	"ledger-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ConversionServiceImpl implements ports.ConversionService. Rates stay
// in arbitrary-precision decimals end to end; only the final converted
// amount is rounded, half to even, back to integer minor units.
type ConversionServiceImpl struct {
	rates ports.RateSource
	// gainLoss maps a currency to the account absorbing rounding residue
	// and FX gain/loss for that currency's side of a conversion.
	gainLoss map[string]uuid.UUID
	log      zerolog.Logger
}

// NewConversionService creates a new ConversionServiceImpl.
func NewConversionService(rates ports.RateSource, gainLoss map[string]uuid.UUID, log zerolog.Logger) *ConversionServiceImpl {
	return &ConversionServiceImpl{
		rates:    rates,
		gainLoss: gainLoss,
		log:      log,
	}
}

// Convert converts amount into toCurrency at the rate effective at asOf.
func (s *ConversionServiceImpl) Convert(ctx context.Context, amount domain.Money, toCurrency string, asOf time.Time) (*ports.Conversion, error) {
	if amount.Currency == toCurrency {
		return &ports.Conversion{Converted: amount, Rate: decimal.NewFromInt(1)}, nil
	}

	rate, err := s.rates.Rate(ctx, amount.Currency, toCurrency, asOf)
	if err != nil {
		return nil, apperror.ErrRateUnavailable(amount.Currency, toCurrency)
	}
	if rate.Sign() <= 0 {
		return nil, apperror.ErrRateUnavailable(amount.Currency, toCurrency)
	}

	converted := decimal.NewFromInt(amount.Amount).Mul(rate).RoundBank(0)
	if !converted.BigInt().IsInt64() {
		return nil, apperror.ErrAmountOverflow()
	}

	return &ports.Conversion{
		Converted: domain.Money{Amount: converted.IntPart(), Currency: toCurrency},
		Rate:      rate,
	}, nil
}

// BuildTransferLines builds the balanced posting set for a transfer that
// crosses currencies. The source and destination legs are bridged by the
// per-currency FX gain/loss accounts, so each currency subset of the
// resulting entry independently sums to zero.
func (s *ConversionServiceImpl) BuildTransferLines(ctx context.Context, fromAccount, toAccount uuid.UUID, amount domain.Money, toCurrency string, asOf time.Time) ([]domain.PostingInput, *ports.Conversion, error) {
	if amount.Amount <= 0 {
		return nil, nil, apperror.Validation("transfer amount must be positive")
	}

	if amount.Currency == toCurrency {
		return []domain.PostingInput{
			{AccountID: fromAccount, Amount: -amount.Amount, Currency: amount.Currency},
			{AccountID: toAccount, Amount: amount.Amount, Currency: amount.Currency},
		}, &ports.Conversion{Converted: amount, Rate: decimal.NewFromInt(1)}, nil
	}

	conv, err := s.Convert(ctx, amount, toCurrency, asOf)
	if err != nil {
		return nil, nil, err
	}
	if conv.Converted.Amount == 0 {
		return nil, nil, apperror.Validation(fmt.Sprintf("amount converts to zero %s at rate %s", toCurrency, conv.Rate))
	}

	srcClearing, err := s.clearingAccount(amount.Currency)
	if err != nil {
		return nil, nil, err
	}
	dstClearing, err := s.clearingAccount(toCurrency)
	if err != nil {
		return nil, nil, err
	}

	lines := []domain.PostingInput{
		{AccountID: fromAccount, Amount: -amount.Amount, Currency: amount.Currency},
		{AccountID: srcClearing, Amount: amount.Amount, Currency: amount.Currency},
		{AccountID: dstClearing, Amount: -conv.Converted.Amount, Currency: toCurrency},
		{AccountID: toAccount, Amount: conv.Converted.Amount, Currency: toCurrency},
	}

	s.log.Debug().
		Str("from_currency", amount.Currency).
		Str("to_currency", toCurrency).
		Str("rate", conv.Rate.String()).
		Int64("amount", amount.Amount).
		Int64("converted", conv.Converted.Amount).
		Msg("built cross-currency transfer lines")

	return lines, conv, nil
}

func (s *ConversionServiceImpl) clearingAccount(currency string) (uuid.UUID, error) {
	id, ok := s.gainLoss[currency]
	if !ok {
		return uuid.Nil, apperror.Validation(fmt.Sprintf("no fx gain/loss account configured for %s", currency))
	}
	return id, nil
}
