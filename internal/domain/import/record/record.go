// Package record defines the value objects shared by every dialect parser.
// All parsers emit the same NormalizedRecord shape; the lab-reconciliation
// dialect additionally emits LedgerImportRow. Records are created once per
// parse pass and treated as immutable from then on - only the dedup checker
// sets IsDuplicate and only the entity matcher sets the Matched* fields,
// each exactly once.
package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction indicates which way money moved on a bank statement line.
type Direction string

const (
	Inflow  Direction = "INFLOW"
	Outflow Direction = "OUTFLOW"
)

// PaymentMethod is the closed set of settlement methods seen in
// lab-reconciliation exports.
type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "CASH"
	PaymentCard      PaymentMethod = "CARD"
	PaymentPix       PaymentMethod = "PIX"
	PaymentTransfer  PaymentMethod = "TRANSFER"
	PaymentCheck     PaymentMethod = "CHECK"
	PaymentInsurance PaymentMethod = "INSURANCE"
)

// DiscountLevel tiers a row by how aggressive its discount was.
type DiscountLevel string

const (
	DiscountNone   DiscountLevel = "NONE"
	DiscountMedium DiscountLevel = "MEDIUM"
	DiscountHigh   DiscountLevel = "HIGH"
)

// DiscountLevelFor derives the tier from a discount ratio.
// Thresholds: below 10% is NONE, 10-30% is MEDIUM, above 30% is HIGH.
func DiscountLevelFor(ratio decimal.Decimal) DiscountLevel {
	switch {
	case ratio.GreaterThan(decimal.NewFromFloat(0.30)):
		return DiscountHigh
	case ratio.GreaterThanOrEqual(decimal.NewFromFloat(0.10)):
		return DiscountMedium
	default:
		return DiscountNone
	}
}

// ValueDivergence annotates a matched record whose amount differs from the
// counterparty's expected amount. Informational only; it never blocks a match.
type ValueDivergence struct {
	Expected   decimal.Decimal `json:"expected"`
	Actual     decimal.Decimal `json:"actual"`
	Difference decimal.Decimal `json:"difference"`
}

// NormalizedRecord is the unifying output of every parser.
// Amount is always a non-negative magnitude; sign lives in Direction.
type NormalizedRecord struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`

	// SourceID is the dialect-native unique id (an OFX FITID, for example).
	// Preferred for dedup when present.
	SourceID string `json:"source_id,omitempty"`

	IsDuplicate bool `json:"is_duplicate"`

	MatchedCounterparty     *uuid.UUID       `json:"matched_counterparty,omitempty"`
	MatchedCounterpartyName string           `json:"matched_counterparty_name,omitempty"`
	MatchedCategory         *uuid.UUID       `json:"matched_category,omitempty"`
	MatchedCategoryName     string           `json:"matched_category_name,omitempty"`
	MatchConfidence         int              `json:"match_confidence"`
	Divergence              *ValueDivergence `json:"divergence,omitempty"`

	// ParseWarnings lets reviewers distinguish a genuinely zero-value
	// transaction from a zero produced by failed amount normalization.
	ParseWarnings []string `json:"parse_warnings,omitempty"`
}

// DedupKey returns the canonical composite key for a bank-statement record:
// the native SourceID when present, else (date|description|amount).
func (r *NormalizedRecord) DedupKey() string {
	if r.SourceID != "" {
		return r.SourceID
	}
	return fmt.Sprintf("%s|%s|%s", r.Date.Format("2006-01-02"), strings.ToUpper(r.Description), r.Amount.StringFixed(2))
}

// LedgerImportRow is the lab-reconciliation dialect superset used for
// cash-custody bookkeeping.
type LedgerImportRow struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`

	// ExternalCode is the immutable external reference, unique within a
	// business unit and date.
	ExternalCode string `json:"external_code"`

	Patient  string `json:"patient,omitempty"`
	Payer    string `json:"payer,omitempty"`
	Operator string `json:"operator,omitempty"`

	GrossAmount     decimal.Decimal `json:"gross_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	SurchargeAmount decimal.Decimal `json:"surcharge_amount"`
	NetAmount       decimal.Decimal `json:"net_amount"`

	// DiscountRatio is discount / (gross + discount), zero when the
	// denominator is zero. DiscountLevel is derived from it, never set
	// independently.
	DiscountRatio decimal.Decimal `json:"discount_ratio"`
	DiscountLevel DiscountLevel   `json:"discount_level"`

	PaymentMethodRaw string        `json:"payment_method_raw"`
	PaymentMethod    PaymentMethod `json:"payment_method"`

	// BusinessUnitCode is empty when no unit resolved; the row is kept and
	// UnitError explains why, so totals stay auditable.
	BusinessUnitCode string `json:"business_unit_code,omitempty"`
	UnitError        string `json:"unit_error,omitempty"`

	// Card settlement fields, only meaningful when PaymentMethod is CARD.
	CardFeeRatio  decimal.Decimal `json:"card_fee_ratio"`
	CardFeeAmount decimal.Decimal `json:"card_fee_amount"`
	NetAfterFee   decimal.Decimal `json:"net_after_fee"`

	IsDuplicate   bool     `json:"is_duplicate"`
	ParseWarnings []string `json:"parse_warnings,omitempty"`
}

// DedupKey returns the canonical (businessUnitCode|date|externalCode) key.
func (r *LedgerImportRow) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s", r.BusinessUnitCode, r.Date.Format("2006-01-02"), r.ExternalCode)
}

// HasError reports whether the row carries a per-row error.
func (r *LedgerImportRow) HasError() bool {
	return r.UnitError != ""
}

// ProviderSummary describes one payer spreadsheet inside an archive.
type ProviderSummary struct {
	Provider     string          `json:"provider"`
	FileName     string          `json:"file_name"`
	IsParticular bool            `json:"is_particular"`
	RowCount     int             `json:"row_count"`
	Total        decimal.Decimal `json:"total"`
	PeriodStart  time.Time       `json:"period_start,omitempty"`
	PeriodEnd    time.Time       `json:"period_end,omitempty"`
}

// ImportBatchResult aggregates the outcome of importing one file (or one
// archive of files). Aggregation is append-only: a failed entry never
// rewinds previously accumulated records.
type ImportBatchResult struct {
	Records    []NormalizedRecord `json:"records,omitempty"`
	LedgerRows []LedgerImportRow  `json:"ledger_rows,omitempty"`

	PeriodStart time.Time `json:"period_start,omitempty"`
	PeriodEnd   time.Time `json:"period_end,omitempty"`

	TotalRecords     int `json:"total_records"`
	ValidRecords     int `json:"valid_records"`
	InvalidRecords   int `json:"invalid_records"`
	DuplicateRecords int `json:"duplicate_records"`

	// Dialect-specific metadata.
	InstitutionName string            `json:"institution_name,omitempty"`
	AccountID       string            `json:"account_id,omitempty"`
	Providers       []ProviderSummary `json:"providers,omitempty"`

	// SkippedEntries lists archive entries or scanned pages that failed,
	// with the reason. Siblings are unaffected.
	SkippedEntries []string `json:"skipped_entries,omitempty"`
}

// ObservePeriod widens the result's period bounds to include d.
func (b *ImportBatchResult) ObservePeriod(d time.Time) {
	if d.IsZero() {
		return
	}
	if b.PeriodStart.IsZero() || d.Before(b.PeriodStart) {
		b.PeriodStart = d
	}
	if b.PeriodEnd.IsZero() || d.After(b.PeriodEnd) {
		b.PeriodEnd = d
	}
}

// Totals sums the non-duplicate record magnitudes by direction. Ledger rows
// count their net amount as inflow; clinic revenue has no outflow side.
func (b *ImportBatchResult) Totals() (inflow, outflow decimal.Decimal) {
	for i := range b.Records {
		if b.Records[i].IsDuplicate {
			continue
		}
		if b.Records[i].Direction == Inflow {
			inflow = inflow.Add(b.Records[i].Amount)
		} else {
			outflow = outflow.Add(b.Records[i].Amount)
		}
	}
	for i := range b.LedgerRows {
		if b.LedgerRows[i].IsDuplicate {
			continue
		}
		inflow = inflow.Add(b.LedgerRows[i].NetAmount)
	}
	return inflow, outflow
}

// Recount recomputes the total/valid/invalid/duplicate counters from the
// record sets. Called once per result as the final reduce step.
func (b *ImportBatchResult) Recount() {
	b.TotalRecords = len(b.Records) + len(b.LedgerRows)
	b.ValidRecords = 0
	b.InvalidRecords = 0
	b.DuplicateRecords = 0

	for i := range b.Records {
		if b.Records[i].IsDuplicate {
			b.DuplicateRecords++
			continue
		}
		b.ValidRecords++
	}
	for i := range b.LedgerRows {
		switch {
		case b.LedgerRows[i].IsDuplicate:
			b.DuplicateRecords++
		case b.LedgerRows[i].HasError():
			b.InvalidRecords++
		default:
			b.ValidRecords++
		}
	}
}
