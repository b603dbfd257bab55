package currency

import (
	"context"
	"log/slog"
	"math"

	"github.com/expensehub/expensehub/internal"
)

// Converter converts amounts between currencies using a RateSource.
type Converter struct {
	rates  RateSource
	logger *slog.Logger
}

func NewConverter(rates RateSource, logger *slog.Logger) *Converter {
	return &Converter{
		rates:  rates,
		logger: logger,
	}
}

func (c *Converter) Convert(ctx context.Context, amount float64, from, to string) (*Conversion, error) {
	from = Normalize(from)
	to = Normalize(to)

	if !IsValidCode(from) {
		return nil, internal.NewValidationError("invalid source currency code", internal.ErrCodeInvalidCurrency)
	}
	if !IsValidCode(to) {
		return nil, internal.NewValidationError("invalid target currency code", internal.ErrCodeInvalidCurrency)
	}

	if from == to {
		return &Conversion{
			OriginalAmount:   amount,
			OriginalCurrency: from,
			Amount:           amount,
			Currency:         to,
			Rate:             1,
		}, nil
	}

	rate, err := c.rates.GetRate(ctx, from, to)
	if err != nil {
		return nil, err
	}

	converted := roundCents(amount * rate)

	c.logger.Debug("converted amount",
		"from", from,
		"to", to,
		"rate", rate,
		"original", amount,
		"converted", converted)

	return &Conversion{
		OriginalAmount:   amount,
		OriginalCurrency: from,
		Amount:           converted,
		Currency:         to,
		Rate:             rate,
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
