package matcher

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/google/uuid"

	"github.com/clinicore/ledger-import/internal/domain/import/normalizer"
)

// SearchDocument is one indexed registry entry. Folded carries the
// diacritic-stripped name and category so accent-free queries still match
// ("condominio" finds "Condomínio"); it is the only field queries run
// against.
type SearchDocument struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"` // "counterparty" or "category"
	Category string `json:"category,omitempty"`
	Folded   string `json:"folded"`
}

// SearchHit is a ranked lookup result.
type SearchHit struct {
	Document SearchDocument
	Score    float64
	EntityID uuid.UUID
}

// SearchIndex is an in-memory full-text index over the registry, built for
// the review layer's counterparty lookups (typo-tolerant, ranked). It is a
// read-side convenience and plays no part in the match tiers.
type SearchIndex struct {
	index bleve.Index
}

// NewSearchIndex builds and populates an in-memory index from the registry.
func NewSearchIndex(registry Registry) (*SearchIndex, error) {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = simple.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("name", textField)
	doc.AddFieldMappingsAt("category", textField)
	doc.AddFieldMappingsAt("folded", textField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = doc

	index, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}

	batch := index.NewBatch()
	for _, cp := range registry.Counterparties {
		d := SearchDocument{
			ID:       cp.ID.String(),
			Name:     cp.Name,
			Kind:     "counterparty",
			Category: cp.DefaultCategoryName,
			Folded:   normalizer.Fold(cp.Name + " " + cp.DefaultCategoryName),
		}
		if err := batch.Index(d.ID, d); err != nil {
			return nil, fmt.Errorf("failed to index counterparty %s: %w", cp.Name, err)
		}
	}
	for _, cat := range registry.Categories {
		d := SearchDocument{
			ID:     cat.ID.String(),
			Name:   cat.Name,
			Kind:   "category",
			Folded: normalizer.Fold(cat.Name),
		}
		if err := batch.Index(d.ID, d); err != nil {
			return nil, fmt.Errorf("failed to index category %s: %w", cat.Name, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to populate search index: %w", err)
	}

	return &SearchIndex{index: index}, nil
}

// Search runs a fuzzy match query and returns ranked hits.
func (si *SearchIndex) Search(query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	q := bleve.NewMatchQuery(normalizer.Fold(query))
	q.SetField("folded")
	q.SetFuzziness(1)

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"name", "kind", "category"}

	res, err := si.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		doc := SearchDocument{ID: h.ID}
		if v, ok := h.Fields["name"].(string); ok {
			doc.Name = v
		}
		if v, ok := h.Fields["kind"].(string); ok {
			doc.Kind = v
		}
		if v, ok := h.Fields["category"].(string); ok {
			doc.Category = v
		}
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		hits = append(hits, SearchHit{Document: doc, Score: h.Score, EntityID: id})
	}
	return hits, nil
}

// Close releases the index.
func (si *SearchIndex) Close() error {
	return si.index.Close()
}
