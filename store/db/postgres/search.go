package postgres

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	serviceerrors "github.com/a8ns/storefront/internal/errors"
	"github.com/a8ns/storefront/store"
)

// Columns a search filter may reference, keyed by the public filter name.
// Unknown filter keys are silently ignored rather than rejected, so callers
// can pass one filter map across entity types.
var (
	productFilterColumns = map[string]string{
		"shop_id":     "p.shop_id",
		"category_id": "p.category_id",
		"brand":       "p.brand",
		"in_stock":    "p.in_stock",
		"is_active":   "p.is_active",
	}
	productRangeColumns = map[string]string{
		"price":          "p.price",
		"stock_quantity": "p.stock_quantity",
	}
	categoryFilterColumns = map[string]string{
		"parent_id": "c.parent_id",
	}
	categoryRangeColumns = map[string]string{}
)

// SearchProducts executes the scored query plan against the product table.
func (d *DB) SearchProducts(ctx context.Context, opts *store.SearchOptions) ([]*store.ProductWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	where, args := []string{"1 = 1"}, []any{}
	where, args = applySearchFilters(where, args, opts, productFilterColumns, productRangeColumns)

	score, order, predicate, args, err := buildScoreExpr(opts, "p", args)
	if err != nil {
		return nil, err
	}
	if score == "" {
		// Text search with no lexical tokens matches nothing.
		return []*store.ProductWithScore{}, nil
	}
	where = append(where, predicate)

	query := `SELECT ` + productColumns + `,
			COALESCE(c.name, '') AS category_name,
			p.embedding IS NOT NULL AS has_embedding,
			` + score + ` AS relevance
		FROM product p
		LEFT JOIN category c ON p.category_id = c.id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + order + `
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapSearchError(err, "failed to search products")
	}
	defer rows.Close()

	results := []*store.ProductWithScore{}
	for rows.Next() {
		var result store.ProductWithScore
		var product store.Product
		err := rows.Scan(
			&product.ID,
			&product.UID,
			&product.ShopID,
			&product.Title,
			&product.Description,
			&product.Price,
			&product.Brand,
			&product.ArticleNumber,
			&product.Barcode,
			&product.ImageURL,
			&product.InStock,
			&product.StockQuantity,
			&product.CategoryID,
			pq.Array(&product.Tags),
			&product.IsActive,
			&product.CreatedTs,
			&product.UpdatedTs,
			&product.CategoryName,
			&product.HasEmbedding,
			&result.Relevance,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan product search result")
		}
		result.Product = &product
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// SearchCategories executes the scored query plan against the category table.
func (d *DB) SearchCategories(ctx context.Context, opts *store.SearchOptions) ([]*store.CategoryWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	where, args := []string{"1 = 1"}, []any{}
	where, args = applySearchFilters(where, args, opts, categoryFilterColumns, categoryRangeColumns)

	score, order, predicate, args, err := buildScoreExpr(opts, "c", args)
	if err != nil {
		return nil, err
	}
	if score == "" {
		return []*store.CategoryWithScore{}, nil
	}
	where = append(where, predicate)

	query := `SELECT ` + categoryColumns + `,
			(SELECT COUNT(*) FROM product p2 WHERE p2.category_id = c.id) AS product_count,
			c.embedding IS NOT NULL AS has_embedding,
			` + score + ` AS relevance
		FROM category c
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + order + `
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapSearchError(err, "failed to search categories")
	}
	defer rows.Close()

	results := []*store.CategoryWithScore{}
	for rows.Next() {
		var result store.CategoryWithScore
		var category store.Category
		err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.ParentID,
			&category.CreatedTs,
			&category.UpdatedTs,
			&category.ProductCount,
			&category.HasEmbedding,
			&result.Relevance,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan category search result")
		}
		result.Category = &category
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// buildScoreExpr appends the mode's query terms to args and returns the score
// expression, the ORDER BY clause and the match predicate. An empty score
// expression (text mode, no tokens) means the query matches nothing.
func buildScoreExpr(opts *store.SearchOptions, alias string, args []any) (string, string, string, []any, error) {
	switch opts.Mode {
	case store.SearchModeText:
		if opts.TSQuery == "" {
			return "", "", "", args, nil
		}
		args = append(args, opts.TSQuery)
		q := placeholder(len(args))
		score := "ts_rank(" + alias + ".search_text, to_tsquery('english', " + q + "))::float8"
		predicate := alias + ".search_text @@ to_tsquery('english', " + q + ")"
		return score, "relevance DESC, " + alias + ".id DESC", predicate, args, nil

	case store.SearchModeVector:
		if len(opts.QueryVector) == 0 {
			return "", "", "", args, errors.New("query vector is required for vector search")
		}
		args = append(args, pgvector.NewVector(opts.QueryVector))
		v := placeholder(len(args))
		// <=> is cosine distance; ordering by it ascending returns the most
		// similar rows first and lets the index drive the scan.
		score := "1 - (" + alias + ".embedding <=> " + v + ")"
		predicate := alias + ".embedding IS NOT NULL"
		return score, alias + ".embedding <=> " + v + " ASC", predicate, args, nil

	case store.SearchModeHybrid:
		if len(opts.QueryVector) == 0 {
			return "", "", "", args, errors.New("query vector is required for hybrid search")
		}
		args = append(args, pgvector.NewVector(opts.QueryVector))
		v := placeholder(len(args))
		vectorTerm := "COALESCE(1 - (" + alias + ".embedding <=> " + v + "), 0)"
		if opts.TSQuery == "" {
			// No lexical tokens: the text term is constant zero and only
			// embedded rows are candidates.
			args = append(args, opts.VectorWeight)
			w := placeholder(len(args))
			return w + " * " + vectorTerm, "relevance DESC, " + alias + ".id DESC", alias + ".embedding IS NOT NULL", args, nil
		}
		args = append(args, opts.TSQuery)
		q := placeholder(len(args))
		args = append(args, opts.TextWeight)
		tw := placeholder(len(args))
		args = append(args, opts.VectorWeight)
		vw := placeholder(len(args))
		score := tw + " * ts_rank(" + alias + ".search_text, to_tsquery('english', " + q + "))::float8 + " + vw + " * " + vectorTerm
		predicate := "(" + alias + ".search_text @@ to_tsquery('english', " + q + ") OR " + alias + ".embedding IS NOT NULL)"
		return score, "relevance DESC, " + alias + ".id DESC", predicate, args, nil

	default:
		return "", "", "", args, errors.Errorf("unsupported search mode: %s", opts.Mode)
	}
}

// applySearchFilters appends exact, membership and range predicates for the
// filter keys the entity knows about. Unknown keys are skipped.
func applySearchFilters(where []string, args []any, opts *store.SearchOptions, filterColumns, rangeColumns map[string]string) ([]string, []any) {
	for field, value := range opts.Filters {
		column, ok := filterColumns[field]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case []string:
			where, args = append(where, column+" = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(v))
		case []int32:
			where, args = append(where, column+" = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(v))
		default:
			where, args = append(where, column+" = "+placeholder(len(args)+1)), append(args, value)
		}
	}
	for field, r := range opts.RangeFilters {
		column, ok := rangeColumns[field]
		if !ok {
			continue
		}
		if r.Min != nil {
			where, args = append(where, column+" >= "+placeholder(len(args)+1)), append(args, *r.Min)
		}
		if r.Max != nil {
			where, args = append(where, column+" <= "+placeholder(len(args)+1)), append(args, *r.Max)
		}
	}
	return where, args
}

// wrapSearchError maps a tsquery compilation failure (SQLSTATE 42601) to the
// QUERY_SYNTAX client error; everything else stays a wrapped server error.
func wrapSearchError(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42601" {
		return serviceerrors.QuerySyntax("invalid search query syntax", err)
	}
	return errors.Wrap(err, msg)
}
