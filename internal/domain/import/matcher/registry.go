// Package matcher assigns a best-guess counterparty and category to bank
// records using a tiered strategy: curated pattern dictionary, direct name
// containment, then category keyword fallback. All reference data is
// injected as plain values; the matcher performs no I/O.
package matcher

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Counterparty is one registered payee/payer from the caller's registry.
type Counterparty struct {
	ID   uuid.UUID
	Name string

	// Patterns are curated name variants for the dictionary tier
	// (diacritic-stripped, upper-cased substrings).
	Patterns []string

	// ExpectedAmount, when set, arms the value-divergence annotation.
	ExpectedAmount *decimal.Decimal

	DefaultCategoryID   *uuid.UUID
	DefaultCategoryName string
}

// Category is one classification bucket with its fallback keywords.
type Category struct {
	ID          uuid.UUID
	Name        string
	Type        string
	Description string
	Keywords    []string
}

// Registry is the caller-supplied reference data snapshot.
type Registry struct {
	Counterparties []Counterparty
	Categories     []Category
}

// Confidence scores per tier.
const (
	ConfidencePattern     = 90
	ConfidenceContainment = 75
	ConfidenceKeyword     = 50
)

// divergenceEpsilon is the negligible difference below which expected and
// actual amounts are considered equal.
var divergenceEpsilon = decimal.NewFromFloat(0.01)
