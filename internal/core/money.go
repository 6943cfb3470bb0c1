// Package core provides money parsing and handling utilities.
//
// Amounts are kept in minor units (paise) and parsed with decimal arithmetic so
// that user input such as "1,250.50" or "₹ 99" never goes through float64.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money is an amount in minor units (1/100 of a rupee).
type Money struct {
	Cents int64
}

// maxRupees bounds every amount read from outside. Anything past a trillion
// rupees is a typo, and would overflow cents math.
var maxRupees = decimal.NewFromInt(1_000_000_000_000)

// Rupees builds a Money from a whole rupee amount.
func Rupees(n int64) Money {
	return Money{Cents: n * 100}
}

// MoneyFromDecimal converts a rupee decimal into Money, rounding half away
// from zero to the paisa.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

// ParseAmount parses a rupee amount typed by a user.
//
// It accepts an optional currency symbol, grouping commas and surrounding
// whitespace. Negative values are rejected with ErrNegativeAmount and anything
// that is not a number with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("1250")      -> ₹1,250
//	ParseAmount("₹1,250.50") -> ₹1,250.50
//	ParseAmount("0.005")     -> ₹0.01 (rounded)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(strings.ToLower(s), "rs.")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	if d.GreaterThan(maxRupees) {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d), nil
}

// Decimal returns the amount in rupees.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount in rupees as a float64. Only use it to hand values
// to stores that persist JSON numbers.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }

// String renders the amount with Indian digit grouping, e.g. ₹1,25,000 or
// ₹12.50. Whole amounts carry no fractional digits.
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := groupIndian(cents / 100)
	if frac := cents % 100; frac != 0 {
		return sign + "₹" + whole + "." + fmt.Sprintf("%02d", frac)
	}
	return sign + "₹" + whole
}

// Input renders the amount the way a form field expects it back ("1250.5").
func (m Money) Input() string {
	return m.Decimal().String()
}

// groupIndian formats n as 12,34,567: the last three digits, then pairs.
func groupIndian(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	head, tail := s[:len(s)-3], s[len(s)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
