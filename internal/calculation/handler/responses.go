package handler

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// FromResult renders a calculation result as a bare JSON number. Plain
// decimal.Decimal marshals as a quoted string.
func FromResult(result decimal.Decimal) json.Number {
	return json.Number(result.String())
}
