package matcher

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/clinicore/ledger-import/internal/domain/import/normalizer"
	"github.com/clinicore/ledger-import/internal/domain/import/record"
)

// Matcher resolves counterparty and category suggestions for bank records.
// Built once from an immutable registry snapshot; safe for concurrent use.
type Matcher struct {
	registry Registry

	// Aho-Corasick automaton over every folded pattern, one pass per
	// description regardless of dictionary size.
	automaton   *ahocorasick.Matcher
	patternRefs []int // pattern index -> counterparty index

	// Pre-folded names and significant words for the containment tier.
	foldedNames [][]string
}

// New builds a matcher from the caller's registry snapshot.
func New(registry Registry) *Matcher {
	m := &Matcher{registry: registry}

	var patterns [][]byte
	for i, cp := range registry.Counterparties {
		for _, p := range cp.Patterns {
			folded := normalizer.Fold(p)
			if folded == "" {
				continue
			}
			patterns = append(patterns, []byte(folded))
			m.patternRefs = append(m.patternRefs, i)
		}
	}
	if len(patterns) > 0 {
		m.automaton = ahocorasick.NewMatcher(patterns)
	}

	m.foldedNames = make([][]string, len(registry.Counterparties))
	for i, cp := range registry.Counterparties {
		folded := normalizer.Fold(cp.Name)
		words := []string{folded}
		for _, w := range strings.Fields(folded) {
			if len(w) > 3 {
				words = append(words, w)
			}
		}
		m.foldedNames[i] = words
	}

	return m
}

// Match resolves the counterparty/category suggestion for one record.
// Tiers are tried in order and the first hit wins; a description matching
// both a dictionary pattern and a category keyword always resolves to the
// dictionary entry.
func (m *Matcher) Match(rec *record.NormalizedRecord) {
	description := normalizer.Fold(rec.Description)
	if description == "" {
		return
	}

	if idx, ok := m.matchPattern(description); ok {
		m.assignCounterparty(rec, idx, ConfidencePattern)
		return
	}
	if idx, ok := m.matchContainment(description); ok {
		m.assignCounterparty(rec, idx, ConfidenceContainment)
		return
	}
	if cat, ok := m.matchCategoryKeyword(description); ok {
		id := cat.ID
		rec.MatchedCategory = &id
		rec.MatchedCategoryName = cat.Name
		rec.MatchConfidence = ConfidenceKeyword
		return
	}
	// No match: fields stay nil and confidence stays 0.
}

// MatchBatch resolves suggestions for every record in a batch result.
func (m *Matcher) MatchBatch(batch *record.ImportBatchResult) {
	for i := range batch.Records {
		m.Match(&batch.Records[i])
	}
}

func (m *Matcher) matchPattern(description string) (int, bool) {
	if m.automaton == nil {
		return 0, false
	}
	hits := m.automaton.Match([]byte(description))
	if len(hits) == 0 {
		return 0, false
	}
	// First hit in dictionary order wins; curated entries are ordered from
	// most to least specific by the registry owner.
	best := hits[0]
	for _, h := range hits[1:] {
		if h < best {
			best = h
		}
	}
	return m.patternRefs[best], true
}

func (m *Matcher) matchContainment(description string) (int, bool) {
	for i, words := range m.foldedNames {
		for _, w := range words {
			if w == "" {
				continue
			}
			if strings.Contains(description, w) {
				return i, true
			}
		}
	}

	// Tolerant pass: catches OCR-mangled or truncated names where plain
	// containment misses.
	for i, words := range m.foldedNames {
		if len(words) == 0 || words[0] == "" {
			continue
		}
		for _, token := range strings.Fields(description) {
			if len(token) > 3 && fuzzy.MatchFold(token, words[0]) {
				return i, true
			}
		}
	}

	return 0, false
}

func (m *Matcher) matchCategoryKeyword(description string) (Category, bool) {
	for _, cat := range m.registry.Categories {
		for _, kw := range cat.Keywords {
			folded := normalizer.Fold(kw)
			if folded != "" && strings.Contains(description, folded) {
				return cat, true
			}
		}
	}
	return Category{}, false
}

func (m *Matcher) assignCounterparty(rec *record.NormalizedRecord, idx, confidence int) {
	cp := m.registry.Counterparties[idx]
	id := cp.ID
	rec.MatchedCounterparty = &id
	rec.MatchedCounterpartyName = cp.Name
	rec.MatchConfidence = confidence

	if cp.DefaultCategoryID != nil {
		catID := *cp.DefaultCategoryID
		rec.MatchedCategory = &catID
		rec.MatchedCategoryName = cp.DefaultCategoryName
	}

	// Expected-amount check is informational; it never blocks the match.
	if cp.ExpectedAmount != nil {
		diff := rec.Amount.Sub(*cp.ExpectedAmount)
		if diff.Abs().GreaterThan(divergenceEpsilon) {
			rec.Divergence = &record.ValueDivergence{
				Expected:   *cp.ExpectedAmount,
				Actual:     rec.Amount,
				Difference: diff,
			}
		}
	}
}
