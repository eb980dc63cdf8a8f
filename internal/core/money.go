// Package core provides money parsing and handling utilities.
//
// This file contains helpers for the VAT field, which the form submits as
// free text, and for rendering amounts in euros.
package core

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidVAT = errors.New("invalid vat")

// ParseVAT converts the VAT field into a decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. An empty
// field is a zero VAT. Negative values are rejected.
func ParseVAT(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidVAT
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidVAT
	}
	return d, nil
}

// FormatVAT renders the VAT field with two decimals and a comma separator.
// Unparsable input is returned unchanged.
func FormatVAT(s string) string {
	d, err := ParseVAT(s)
	if err != nil {
		return s
	}
	return strings.Replace(d.StringFixed(2), ".", ",", 1) + " €"
}

// FormatAmount renders an integer amount of euros.
func FormatAmount(amount int) string {
	return strconv.Itoa(amount) + " €"
}
