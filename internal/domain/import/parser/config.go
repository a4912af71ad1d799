package parser

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/clinicore/ledger-import/internal/domain/import/normalizer"
	"github.com/clinicore/ledger-import/internal/domain/import/record"
)

// BusinessUnit is one operational site whose labels and code prefixes
// appear in import rows.
type BusinessUnit struct {
	Code     string
	Label    string
	Prefixes []string
	Keywords []string
}

// CardFeeTable holds the card processing rates applied to CARD rows.
// Rates are fractions (0.0299 = 2.99%).
type CardFeeTable struct {
	Credit decimal.Decimal
	Debit  decimal.Decimal

	// FallbackUsed marks rates that came from the hard-coded defaults
	// rather than configuration; rows computed with them get a warning.
	FallbackUsed bool
}

// DefaultCardFees returns the historical fallback rates, used only when no
// configured fee record matches.
func DefaultCardFees() CardFeeTable {
	return CardFeeTable{
		Credit:       decimal.NewFromFloat(0.0299),
		Debit:        decimal.NewFromFloat(0.0199),
		FallbackUsed: true,
	}
}

// LedgerConfig is the immutable reference data the lab-reconciliation
// parser needs: unit lookups, payment-method synonyms and card fees.
// Injected at construction time so tests can substitute fixtures.
type LedgerConfig struct {
	Units           []BusinessUnit
	PaymentSynonyms map[string]record.PaymentMethod
	CardFees        CardFeeTable
}

// DefaultPaymentSynonyms covers the method labels seen across lab exports.
// Keys are diacritic-folded.
func DefaultPaymentSynonyms() map[string]record.PaymentMethod {
	return map[string]record.PaymentMethod{
		"DINHEIRO":          record.PaymentCash,
		"ESPECIE":           record.PaymentCash,
		"CARTAO":            record.PaymentCard,
		"CARTAO DE CREDITO": record.PaymentCard,
		"CARTAO DE DEBITO":  record.PaymentCard,
		"CREDITO":           record.PaymentCard,
		"DEBITO":            record.PaymentCard,
		"PIX":               record.PaymentPix,
		"TRANSFERENCIA":     record.PaymentTransfer,
		"TED":               record.PaymentTransfer,
		"DOC":               record.PaymentTransfer,
		"CHEQUE":            record.PaymentCheck,
		"CONVENIO":          record.PaymentInsurance,
		"PLANO":             record.PaymentInsurance,
	}
}

// substring fallbacks, checked in order after the exact lookup misses
var paymentKeywordFallback = []struct {
	keyword string
	method  record.PaymentMethod
}{
	{"CART", record.PaymentCard},
	{"CRED", record.PaymentCard},
	{"DEB", record.PaymentCard},
	{"PIX", record.PaymentPix},
	{"TRANSF", record.PaymentTransfer},
	{"TED", record.PaymentTransfer},
	{"CHEQ", record.PaymentCheck},
	{"CONV", record.PaymentInsurance},
	{"PLANO", record.PaymentInsurance},
	{"DINHEIRO", record.PaymentCash},
	{"ESPEC", record.PaymentCash},
}

// ResolvePaymentMethod maps a free-text label onto the closed enum: exact
// lookup first, then keyword fallback, defaulting to PIX (the platform's
// most common electronic method) when nothing matches. The returned flag is
// false when the default was used.
func (c LedgerConfig) ResolvePaymentMethod(label string) (record.PaymentMethod, bool) {
	folded := normalizer.Fold(label)
	if folded == "" {
		return record.PaymentPix, false
	}

	synonyms := c.PaymentSynonyms
	if synonyms == nil {
		synonyms = DefaultPaymentSynonyms()
	}
	if m, ok := synonyms[folded]; ok {
		return m, true
	}
	for _, fb := range paymentKeywordFallback {
		if strings.Contains(folded, fb.keyword) {
			return fb.method, true
		}
	}
	return record.PaymentPix, false
}

// ResolveUnit resolves the business unit for a row by, in order: direct
// lookup of the unit label, a prefix extracted from the code field, and
// keyword matching against known unit names. Returns false when nothing
// resolves; the caller keeps the row and flags it.
func (c LedgerConfig) ResolveUnit(unitLabel, code string) (string, bool) {
	label := normalizer.Fold(unitLabel)
	for _, u := range c.Units {
		if label != "" && (label == normalizer.Fold(u.Label) || label == normalizer.Fold(u.Code)) {
			return u.Code, true
		}
	}

	codeFolded := normalizer.Fold(code)
	for _, u := range c.Units {
		for _, prefix := range u.Prefixes {
			if prefix != "" && strings.HasPrefix(codeFolded, normalizer.Fold(prefix)) {
				return u.Code, true
			}
		}
	}

	for _, u := range c.Units {
		for _, kw := range u.Keywords {
			if kw != "" && strings.Contains(label, normalizer.Fold(kw)) {
				return u.Code, true
			}
		}
	}

	return "", false
}

// CardFeeFor returns the fee rate for a CARD row, picking credit or debit
// by keyword in the raw method label. Debit requires an explicit marker;
// everything else is treated as credit.
func (c LedgerConfig) CardFeeFor(label string) (decimal.Decimal, bool) {
	fees := c.CardFees
	if fees.Credit.IsZero() && fees.Debit.IsZero() {
		fees = DefaultCardFees()
	}
	folded := normalizer.Fold(label)
	if strings.Contains(folded, "DEB") {
		return fees.Debit, fees.FallbackUsed
	}
	return fees.Credit, fees.FallbackUsed
}
