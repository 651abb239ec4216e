package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// maxDecimalExponent bounds parsed exponents so later arithmetic stays cheap.
const maxDecimalExponent = 64

// ParseDecimal accepts user-formatted amounts like:
// - "20,000"
// - "$ 20,000"
// - "-1,234.50"
// - "1e3"
//
// Thousands separators and a leading '$' are dropped; the rest must be a valid decimal.
func ParseDecimal(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q", value)
	}
	if exp := d.Exponent(); exp > maxDecimalExponent || exp < -maxDecimalExponent {
		return decimal.Zero, fmt.Errorf("decimal %q out of range", value)
	}
	return d, nil
}

// DecimalFromAny converts JSON-decoded input (string, json.Number, float64, int) to a decimal.
func DecimalFromAny(i any) (decimal.Decimal, error) {
	switch v := i.(type) {
	case string:
		return ParseDecimal(v)
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return decimal.Zero, fmt.Errorf("invalid value %v", i)
	}
}

var (
	maxIntDecimal = decimal.NewFromInt(math.MaxInt)
	minIntDecimal = decimal.NewFromInt(math.MinInt)
)

// CoerceQuantity truncates a fractional quantity toward zero. Values outside the
// int range saturate at its bounds.
func CoerceQuantity(d decimal.Decimal) int {
	switch {
	case d.GreaterThanOrEqual(maxIntDecimal):
		return math.MaxInt
	case d.LessThanOrEqual(minIntDecimal):
		return math.MinInt
	}
	return int(d.Truncate(0).IntPart())
}
