// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and formatting them for display in a given currency.
package core

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = money.BRL

var ErrInvalidAmount = fmt.Errorf("%w: amount must be a positive number", ErrValidation)

// ParseAmount converts a user supplied decimal string into an exact amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs
// are rejected; the result is always strictly positive.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("0")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// FormatAmount renders d in the given ISO currency, rounded to the
// currency's minor unit. Unknown codes fall back to DefaultCurrency.
func FormatAmount(d decimal.Decimal, code string) string {
	cur := money.GetCurrency(strings.ToUpper(strings.TrimSpace(code)))
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
