package store

import "context"

// SearchMode selects which scoring expression the driver builds.
type SearchMode string

const (
	// SearchModeText ranks by the native full-text rank over search_text.
	SearchModeText SearchMode = "text"
	// SearchModeVector ranks by cosine similarity over the embedding column.
	SearchModeVector SearchMode = "vector"
	// SearchModeHybrid ranks by the weighted sum of both scores.
	SearchModeHybrid SearchMode = "hybrid"
)

// RangeFilter restricts a numeric column to an optional [Min, Max] interval.
type RangeFilter struct {
	Min *float64
	Max *float64
}

// SearchOptions is the scored-query plan a strategy hands to the driver.
//
// Filters map field names to an exact-match value or a membership slice;
// RangeFilters map field names to numeric intervals. Only fields that exist
// on the target entity are applied; unknown keys are silently ignored.
type SearchOptions struct {
	Mode SearchMode

	// TSQuery is the AND-joined lexical query expression. Empty means no
	// lexical predicate: text mode then matches nothing, hybrid mode falls
	// back to embedded rows only with a zero text term.
	TSQuery string

	// QueryVector is the embedded query; required for vector and hybrid.
	QueryVector []float32

	// Hybrid weights; ignored for the other modes.
	TextWeight   float64
	VectorWeight float64

	Filters      map[string]any
	RangeFilters map[string]RangeFilter

	Limit int
}

// ProductWithScore is a product search hit with its relevance score.
type ProductWithScore struct {
	Product   *Product
	Relevance float64
}

// CategoryWithScore is a category search hit with its relevance score.
type CategoryWithScore struct {
	Category  *Category
	Relevance float64
}

// SearchProducts executes a scored product query.
func (s *Store) SearchProducts(ctx context.Context, opts *SearchOptions) ([]*ProductWithScore, error) {
	return s.driver.SearchProducts(ctx, opts)
}

// SearchCategories executes a scored category query.
func (s *Store) SearchCategories(ctx context.Context, opts *SearchOptions) ([]*CategoryWithScore, error) {
	return s.driver.SearchCategories(ctx, opts)
}
