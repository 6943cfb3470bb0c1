package core

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Document stores and the insights backend hand back loosely typed values.
// These helpers are the only place where such values are interpreted; a field
// that is missing or not a number reads as zero.

// AmountFrom interprets v as a rupee amount.
func AmountFrom(v any) Money {
	d, ok := decimalFrom(v)
	if !ok {
		return Money{}
	}
	return MoneyFromDecimal(d)
}

// HoursFrom interprets v as a number of hours.
func HoursFrom(v any) decimal.Decimal {
	d, ok := decimalFrom(v)
	if !ok {
		return decimal.Zero
	}
	return d
}

// IntFrom interprets v as an integer, truncating fractions.
func IntFrom(v any) int {
	d, ok := decimalFrom(v)
	if !ok {
		return 0
	}
	return int(d.IntPart())
}

// StringFrom returns v when it is a string, else "".
func StringFrom(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// BoolFrom returns v when it is a bool, else false.
func BoolFrom(v any) bool {
	b, _ := v.(bool)
	return b
}

// decimalFrom reads v as a number. Values beyond maxRupees in magnitude are
// unreadable, like any other garbage.
func decimalFrom(v any) (decimal.Decimal, bool) {
	d, ok := rawDecimal(v)
	if !ok || d.Abs().GreaterThan(maxRupees) {
		return decimal.Zero, false
	}
	return d, true
}

func rawDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case float32:
		return floatDecimal(float64(n))
	case float64:
		return floatDecimal(n)
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case decimal.Decimal:
		return n, true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

func floatDecimal(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}
