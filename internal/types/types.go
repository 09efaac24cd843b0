// README: Common value objects used across modules.
package types

import "math"

type ID string

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Money carries an amount in the currency's minor units (e.g. paise) so that
// repricing deltas round exactly once, at the minor unit.
type Money struct {
	Amount   int64
	Currency string
}

// MoneyFromFloat converts a major-unit amount (e.g. 1180.00) into Money,
// rounding half away from zero at the minor unit.
func MoneyFromFloat(amount float64, currency string) Money {
	return Money{Amount: int64(math.Round(amount * 100)), Currency: currency}
}

// Float returns the amount in major units.
func (m Money) Float() float64 {
	return float64(m.Amount) / 100
}

// Sub returns m minus other in minor units. Stores never mix currencies
// within a quote.
func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}
