// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors: the ERP's proration
// rules are truncation-sensitive and must not drift through binary floats.
type Money = decimal.Decimal

// Liters represents a fuel quantity in liters with full precision.
type Liters = decimal.Decimal

// ShareScale is the fractional precision the ERP applies to prorated
// tax shares and per-unit figures. Shares are truncated, never rounded.
const ShareScale int32 = 4

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Truncate4 truncates toward zero at ShareScale fractional digits.
// This mirrors the ERP's own computation: 37.49999 becomes 37.4999,
// never 37.5000.
func Truncate4(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(ShareScale)
}
