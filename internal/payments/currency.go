package payments

import "math"

// Converter converts base-currency amounts to the settlement currency using a
// fixed multiplicative rate. The settlement currency has no minor unit in
// practice, so results are rounded to the nearest whole unit.
type Converter struct {
	Rate         float64
	BaseCurrency string
	Currency     string
}

func NewConverter(rate float64, baseCurrency, currency string) Converter {
	return Converter{
		Rate:         rate,
		BaseCurrency: baseCurrency,
		Currency:     currency,
	}
}

// ToSettlementCurrency converts a base-currency amount to whole units of the
// settlement currency. Pure and total: same input, same output, no failure
// modes. Must be applied at every point an amount crosses the trust boundary
// so the amount authorized, collected and recorded never drift apart.
func (c Converter) ToSettlementCurrency(baseAmount float64) int64 {
	return int64(math.Round(baseAmount * c.Rate))
}
