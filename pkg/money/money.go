// Package money provides currency-safe helpers for presenting the engine's
// decimal amounts, using integer cents and ISO-4217 codes. Imports are
// normalized in BRL; the helpers exist so divergence annotations and CLI
// output format consistently.
package money

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// BRL is the currency every clinic export settles in.
const BRL = "BRL"

// FromDecimal converts a decimal amount into go-money minor units.
func FromDecimal(d decimal.Decimal, currencyCode string) *money.Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(BRL)
	}
	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := d.Mul(multiplier).Round(0).IntPart()
	return money.New(cents, currency.Code)
}

// Format renders a decimal amount with its currency symbol ("R$ 1.234,56").
func Format(d decimal.Decimal, currencyCode string) string {
	return FromDecimal(d, currencyCode).Display()
}

// FormatBRL renders a decimal amount in the default import currency.
func FormatBRL(d decimal.Decimal) string {
	return Format(d, BRL)
}

// ToDecimal converts go-money minor units back into a decimal amount.
func ToDecimal(m *money.Money) decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	fraction := int32(2)
	if c := m.Currency(); c != nil {
		fraction = int32(c.Fraction)
	}
	return decimal.New(m.Amount(), -fraction)
}
