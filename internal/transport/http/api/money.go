package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money encodes a decimal amount as a string with exactly two places.
type Money decimal.Decimal

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(decimal.Decimal(m).StringFixed(2))
}

func (m Money) String() string {
	return decimal.Decimal(m).StringFixed(2)
}
