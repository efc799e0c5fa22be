package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// DefaultMinScore is the lowest bleve score accepted as an FAQ answer.
const DefaultMinScore = 0.35

type faqDocument struct {
	Question string `json:"question"`
	Tags     string `json:"tags"`
}

// Index is an in-memory full-text index over FAQ entries. It is built once
// and only read afterwards.
type Index struct {
	index    bleve.Index
	entries  map[string]FAQ
	minScore float64
}

// NewIndex indexes entries. A minScore of zero uses DefaultMinScore.
func NewIndex(entries []FAQ, minScore float64) (*Index, error) {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create faq index: %w", err)
	}

	batch := idx.NewBatch()
	byID := make(map[string]FAQ, len(entries))
	for _, e := range entries {
		doc := faqDocument{Question: e.Question, Tags: strings.Join(e.Tags, " ")}
		if err := batch.Index(e.ID, doc); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("index faq %q: %w", e.ID, err)
		}
		byID[e.ID] = e
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("index faq batch: %w", err)
	}

	return &Index{index: idx, entries: byID, minScore: minScore}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	faqMapping := bleve.NewDocumentMapping()

	questionField := bleve.NewTextFieldMapping()
	questionField.Analyzer = en.AnalyzerName
	faqMapping.AddFieldMappingsAt("question", questionField)

	tagsField := bleve.NewTextFieldMapping()
	tagsField.Analyzer = en.AnalyzerName
	faqMapping.AddFieldMappingsAt("tags", tagsField)

	indexMapping.DefaultMapping = faqMapping
	return indexMapping
}

// Search returns the best matching entry scoring at least the threshold.
func (i *Index) Search(ctx context.Context, query string) (FAQ, float64, bool, error) {
	q := bleve.NewMatchQuery(query)
	q.Analyzer = en.AnalyzerName

	req := bleve.NewSearchRequestOptions(q, 1, 0, false)
	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return FAQ{}, 0, false, fmt.Errorf("search faq: %w", err)
	}
	if len(res.Hits) == 0 || res.Hits[0].Score < i.minScore {
		return FAQ{}, 0, false, nil
	}

	hit := res.Hits[0]
	entry, ok := i.entries[hit.ID]
	if !ok {
		return FAQ{}, 0, false, nil
	}
	return entry, hit.Score, true, nil
}

// Len returns the number of indexed entries.
func (i *Index) Len() int {
	return len(i.entries)
}

// Close releases the index.
func (i *Index) Close() error {
	return i.index.Close()
}
