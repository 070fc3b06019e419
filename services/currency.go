package services

import (
	"context"
	"math"

	"agencyops/backend/models"

	"github.com/shopspring/decimal"
)

// Converter expresses amounts in every supported currency
type Converter struct {
	rates RateProvider
}

func NewConverter(rates RateProvider) *Converter {
	return &Converter{rates: rates}
}

// ConvertToAll returns amount expressed in every supported currency, rounded
// to whole units. The source currency is rounded directly and never passes
// through a rate. Any fetch failure or missing rate fails the whole map.
func (c *Converter) ConvertToAll(ctx context.Context, amount float64, source models.Currency) (models.ConvertedAmounts, error) {
	var out models.ConvertedAmounts

	source = source.OrDefault()
	if !source.Valid() {
		return out, validation("unsupported currency %q", source)
	}
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return out, validation("amount must be a non-negative number")
	}

	rates, err := c.rates.Rates(ctx, source)
	if err != nil {
		return out, err
	}

	value := decimal.NewFromFloat(amount)
	for _, target := range models.Currencies {
		if target == source {
			out.Set(target, roundWhole(value))
			continue
		}
		rate, ok := rates[string(target)]
		if !ok || rate <= 0 {
			return models.ConvertedAmounts{}, newError(KindMissingRate, "no %s rate available for %s", target, source)
		}
		out.Set(target, roundWhole(value.Mul(decimal.NewFromFloat(rate))))
	}

	return out, nil
}

// roundWhole rounds half away from zero to a whole unit
func roundWhole(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// roundMoney rounds a float aggregate for presentation
func roundMoney(v float64) int64 {
	return roundWhole(decimal.NewFromFloat(v))
}

// percent returns round(part/whole*100), or 0 when whole is not positive
func percent(part, whole float64) int64 {
	if whole <= 0 {
		return 0
	}
	return roundWhole(decimal.NewFromFloat(part).Div(decimal.NewFromFloat(whole)).Mul(decimal.NewFromInt(100)))
}
