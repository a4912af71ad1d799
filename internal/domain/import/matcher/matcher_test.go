package matcher

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/ledger-import/internal/domain/import/record"
)

func testRegistry() Registry {
	rentCatID := uuid.New()
	expected := decimal.NewFromInt(1500)

	return Registry{
		Counterparties: []Counterparty{
			{
				ID:                  uuid.MustParse("11111111-1111-1111-1111-111111111111"),
				Name:                "Maria Lucia Ferreira",
				Patterns:            []string{"ALUGUEL MARIA", "MARIA LUCIA"},
				ExpectedAmount:      &expected,
				DefaultCategoryID:   &rentCatID,
				DefaultCategoryName: "Aluguel",
			},
			{
				ID:   uuid.MustParse("22222222-2222-2222-2222-222222222222"),
				Name: "Laboratorio Veritas",
			},
		},
		Categories: []Category{
			{
				ID:       uuid.MustParse("33333333-3333-3333-3333-333333333333"),
				Name:     "Aluguel e Condomínio",
				Type:     "expense",
				Keywords: []string{"aluguel", "condominio"},
			},
		},
	}
}

func TestMatcher_PatternTier(t *testing.T) {
	m := New(testRegistry())

	rec := record.NormalizedRecord{Description: "ALUGUEL MARIA LUCIA 03/2025", Amount: decimal.NewFromInt(1500)}
	m.Match(&rec)

	require.NotNil(t, rec.MatchedCounterparty)
	assert.Equal(t, "Maria Lucia Ferreira", rec.MatchedCounterpartyName)
	assert.Equal(t, ConfidencePattern, rec.MatchConfidence)
	assert.Equal(t, "Aluguel", rec.MatchedCategoryName)
	assert.Nil(t, rec.Divergence, "expected amount matches")
}

func TestMatcher_PatternBeatsCategoryKeyword(t *testing.T) {
	m := New(testRegistry())

	// Both the dictionary pattern and the "aluguel" category keyword hit;
	// the dictionary entry must win.
	rec := record.NormalizedRecord{Description: "aluguel maria lucia", Amount: decimal.NewFromInt(1500)}
	m.Match(&rec)

	require.NotNil(t, rec.MatchedCounterparty)
	assert.Equal(t, ConfidencePattern, rec.MatchConfidence)
}

func TestMatcher_ContainmentTier(t *testing.T) {
	m := New(testRegistry())

	rec := record.NormalizedRecord{Description: "PAGTO VERITAS NF 4412", Amount: decimal.NewFromInt(300)}
	m.Match(&rec)

	require.NotNil(t, rec.MatchedCounterparty)
	assert.Equal(t, "Laboratorio Veritas", rec.MatchedCounterpartyName)
	assert.Equal(t, ConfidenceContainment, rec.MatchConfidence)
}

func TestMatcher_DiacriticsFolded(t *testing.T) {
	m := New(testRegistry())

	rec := record.NormalizedRecord{Description: "Pagto Laboratório Véritas"}
	m.Match(&rec)

	require.NotNil(t, rec.MatchedCounterparty)
	assert.Equal(t, "Laboratorio Veritas", rec.MatchedCounterpartyName)
}

func TestMatcher_CategoryKeywordTier(t *testing.T) {
	m := New(testRegistry())

	rec := record.NormalizedRecord{Description: "PAGAMENTO CONDOMINIO EDIFICIO SOL"}
	m.Match(&rec)

	assert.Nil(t, rec.MatchedCounterparty)
	require.NotNil(t, rec.MatchedCategory)
	assert.Equal(t, "Aluguel e Condomínio", rec.MatchedCategoryName)
	assert.Equal(t, ConfidenceKeyword, rec.MatchConfidence)
}

func TestMatcher_NoMatch(t *testing.T) {
	m := New(testRegistry())

	rec := record.NormalizedRecord{Description: "TARIFA BANCARIA"}
	m.Match(&rec)

	assert.Nil(t, rec.MatchedCounterparty)
	assert.Nil(t, rec.MatchedCategory)
	assert.Equal(t, 0, rec.MatchConfidence)
}

func TestMatcher_ValueDivergence(t *testing.T) {
	m := New(testRegistry())

	rec := record.NormalizedRecord{Description: "ALUGUEL MARIA LUCIA", Amount: decimal.NewFromInt(1600)}
	m.Match(&rec)

	require.NotNil(t, rec.MatchedCounterparty, "divergence never blocks the match")
	require.NotNil(t, rec.Divergence)
	assert.True(t, rec.Divergence.Expected.Equal(decimal.NewFromInt(1500)))
	assert.True(t, rec.Divergence.Difference.Equal(decimal.NewFromInt(100)))
}

func TestMatcher_MatchBatch(t *testing.T) {
	m := New(testRegistry())

	batch := &record.ImportBatchResult{
		Records: []record.NormalizedRecord{
			{Description: "ALUGUEL MARIA LUCIA", Amount: decimal.NewFromInt(1500)},
			{Description: "TARIFA BANCARIA"},
		},
	}
	m.MatchBatch(batch)

	assert.NotNil(t, batch.Records[0].MatchedCounterparty)
	assert.Nil(t, batch.Records[1].MatchedCounterparty)
}
