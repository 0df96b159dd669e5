// Package retrieval provides the similarity-search index over reference
// documents (past campaigns, customer segments, sales rows). Stages query it
// for grounding context and must tolerate it being absent or failing.
package retrieval

import "context"

// Document is one indexed text chunk: a flattened CSV row plus where it came
// from. Source and Row form the stable identity used for dedup on rebuild.
type Document struct {
	Content  string `json:"content"`
	Source   string `json:"source"`
	Row      int    `json:"row"`
	Category string `json:"category"`
}

// Searcher returns the k most similar documents for a query, best first.
// Similarity scores stay internal to the implementation.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// FilterCategory keeps only documents of the given category, preserving order.
func FilterCategory(docs []Document, category string) []Document {
	var out []Document
	for _, d := range docs {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// SearchCategory searches and filters to one category. When the category
// yields nothing within the top-k, the unfiltered top-k is returned instead.
func SearchCategory(ctx context.Context, s Searcher, query, category string, k int) ([]Document, error) {
	docs, err := s.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if filtered := FilterCategory(docs, category); len(filtered) > 0 {
		return filtered, nil
	}
	return docs, nil
}
