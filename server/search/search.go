// Package search implements the multi-strategy product and category search:
// lexical full-text, vector similarity, and a weighted hybrid of the two,
// dispatched behind a single entry point with graceful degradation when the
// embedding provider is unavailable or failing.
package search

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	serviceerrors "github.com/a8ns/storefront/internal/errors"
	"github.com/a8ns/storefront/internal/metrics"
	"github.com/a8ns/storefront/internal/observability"
	"github.com/a8ns/storefront/plugin/embedding"
	"github.com/a8ns/storefront/store"
)

// Method is a client-selectable search strategy.
type Method string

const (
	MethodText   Method = "text"
	MethodVector Method = "vector"
	MethodHybrid Method = "hybrid"
)

// ParseMethod validates a raw method string; empty defaults to text.
func ParseMethod(raw string) (Method, error) {
	switch raw {
	case "", string(MethodText):
		return MethodText, nil
	case string(MethodVector):
		return MethodVector, nil
	case string(MethodHybrid):
		return MethodHybrid, nil
	default:
		return "", serviceerrors.InvalidMethod(raw)
	}
}

// Entity names a searchable entity type.
type Entity string

const (
	EntityProducts   Entity = "products"
	EntityCategories Entity = "categories"
)

// Request is one search call. Filters and RangeFilters are passed through to
// the store, which ignores keys the entity does not recognize.
type Request struct {
	Query        string
	Method       Method
	Filters      map[string]any
	RangeFilters map[string]store.RangeFilter
	Limit        int
}

// ProductResult is one ranked product hit.
type ProductResult struct {
	ID           int32    `json:"id"`
	Relevance    float64  `json:"relevance"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	Brand        string   `json:"brand"`
	ImageURL     string   `json:"image_url"`
	CategoryID   *int32   `json:"category_id"`
	CategoryName string   `json:"category_name"`
	Tags         []string `json:"tags"`
}

// CategoryResult is one ranked category hit.
type CategoryResult struct {
	ID           int32   `json:"id"`
	Relevance    float64 `json:"relevance"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	ProductCount int64   `json:"product_count"`
}

// ProductResponse is the product search response body.
type ProductResponse struct {
	Results         []*ProductResult `json:"results"`
	Total           int              `json:"total"`
	Query           string           `json:"query"`
	Method          Method           `json:"method"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
}

// CategoryResponse is the category search response body.
type CategoryResponse struct {
	Results         []*CategoryResult `json:"results"`
	Total           int               `json:"total"`
	Query           string            `json:"query"`
	Method          Method            `json:"method"`
	ExecutionTimeMs float64           `json:"execution_time_ms"`
}

// Store is the slice of the data layer the search service needs.
type Store interface {
	SearchProducts(ctx context.Context, opts *store.SearchOptions) ([]*store.ProductWithScore, error)
	SearchCategories(ctx context.Context, opts *store.SearchOptions) ([]*store.CategoryWithScore, error)
}

// Strategy plans the scored query for one search method. Implementations may
// call the embedding provider; they never touch the database, so a plan can
// be retried or executed against any entity.
type Strategy interface {
	Search(ctx context.Context, query string, limit int) (*store.SearchOptions, error)
}

// textStrategy matches on the tsvector projection only.
type textStrategy struct{}

func (textStrategy) Search(_ context.Context, query string, limit int) (*store.SearchOptions, error) {
	return &store.SearchOptions{
		Mode:    store.SearchModeText,
		TSQuery: tokenizeQuery(query),
		Limit:   limit,
	}, nil
}

// vectorStrategy embeds the raw query and ranks by cosine similarity.
type vectorStrategy struct {
	provider embedding.Service
}

func (s vectorStrategy) Search(ctx context.Context, query string, limit int) (*store.SearchOptions, error) {
	if s.provider == nil {
		return nil, serviceerrors.FeatureDisabled("vector search is not enabled")
	}
	vector, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return &store.SearchOptions{
		Mode:        store.SearchModeVector,
		QueryVector: vector,
		Limit:       limit,
	}, nil
}

// hybridStrategy combines both scores. If embedding the query fails, the call
// degrades to a plain text plan: logged, never surfaced to the client.
type hybridStrategy struct {
	provider     embedding.Service
	textWeight   float64
	vectorWeight float64
}

func (s hybridStrategy) Search(ctx context.Context, query string, limit int) (*store.SearchOptions, error) {
	if s.provider == nil {
		return nil, serviceerrors.FeatureDisabled("vector search is not enabled")
	}
	vector, err := s.provider.Embed(ctx, query)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("hybrid search degrading to text: query embedding failed",
			slog.String("error", err.Error()))
		metrics.SearchFallbacks.WithLabelValues(string(MethodHybrid), "embed_error").Inc()
		return textStrategy{}.Search(ctx, query, limit)
	}
	return &store.SearchOptions{
		Mode:         store.SearchModeHybrid,
		TSQuery:      tokenizeQuery(query),
		QueryVector:  vector,
		TextWeight:   s.textWeight,
		VectorWeight: s.vectorWeight,
		Limit:        limit,
	}, nil
}

// tokenizeQuery whitespace-tokenizes a raw query and AND-joins the tokens
// into a to_tsquery expression. An empty result matches nothing.
func tokenizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " & ")
}

// Service is the search dispatcher.
type Service struct {
	store    Store
	settings *Settings
}

// NewService creates the search service over the given store and runtime
// configuration.
func NewService(store Store, settings *Settings) *Service {
	return &Service{store: store, settings: settings}
}

// Settings exposes the runtime configuration (for the admin endpoints).
func (s *Service) Settings() *Settings {
	return s.settings
}

// SearchProducts runs one product search.
func (s *Service) SearchProducts(ctx context.Context, req *Request) (*ProductResponse, error) {
	resp := &ProductResponse{Query: req.Query, Results: []*ProductResult{}}

	method, elapsedMs, err := s.dispatch(ctx, EntityProducts, req, func(ctx context.Context, opts *store.SearchOptions) error {
		rows, err := s.store.SearchProducts(ctx, opts)
		if err != nil {
			return err
		}
		results := make([]*ProductResult, 0, len(rows))
		for _, row := range rows {
			results = append(results, &ProductResult{
				ID:           row.Product.ID,
				Relevance:    row.Relevance,
				Title:        row.Product.Title,
				Description:  row.Product.Description,
				Price:        row.Product.Price,
				Brand:        row.Product.Brand,
				ImageURL:     row.Product.ImageURL,
				CategoryID:   row.Product.CategoryID,
				CategoryName: row.Product.CategoryName,
				Tags:         row.Product.Tags,
			})
		}
		resp.Results = results
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp.Total = len(resp.Results)
	resp.Method = method
	resp.ExecutionTimeMs = elapsedMs
	return resp, nil
}

// SearchCategories runs one category search.
func (s *Service) SearchCategories(ctx context.Context, req *Request) (*CategoryResponse, error) {
	resp := &CategoryResponse{Query: req.Query, Results: []*CategoryResult{}}

	method, elapsedMs, err := s.dispatch(ctx, EntityCategories, req, func(ctx context.Context, opts *store.SearchOptions) error {
		rows, err := s.store.SearchCategories(ctx, opts)
		if err != nil {
			return err
		}
		results := make([]*CategoryResult, 0, len(rows))
		for _, row := range rows {
			results = append(results, &CategoryResult{
				ID:           row.Category.ID,
				Relevance:    row.Relevance,
				Name:         row.Category.Name,
				Description:  row.Category.Description,
				ProductCount: row.Category.ProductCount,
			})
		}
		resp.Results = results
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp.Total = len(resp.Results)
	resp.Method = method
	resp.ExecutionTimeMs = elapsedMs
	return resp, nil
}

// dispatch resolves the effective method, plans the query through the
// strategy, and executes it via exec. Timing covers planning and execution
// only. It returns the method that actually produced the results.
func (s *Service) dispatch(ctx context.Context, entity Entity, req *Request, exec func(context.Context, *store.SearchOptions) error) (Method, float64, error) {
	logger := observability.LoggerFromContext(ctx)

	method := req.Method
	switch method {
	case "":
		method = MethodText
	case MethodText, MethodVector, MethodHybrid:
	default:
		return "", 0, serviceerrors.InvalidMethod(string(method))
	}

	snapshot := s.settings.Snapshot()
	provider := s.settings.Provider()

	// Vector and hybrid silently downgrade to text while the feature is off.
	if (method == MethodVector || method == MethodHybrid) && provider == nil {
		logger.Warn("vector search disabled, downgrading to text",
			slog.String("requested", string(method)))
		metrics.SearchFallbacks.WithLabelValues(string(method), "disabled").Inc()
		method = MethodText
	}

	limit := req.Limit
	if limit <= 0 {
		limit = snapshot.DefaultLimit
	}
	if limit > snapshot.MaxLimit {
		limit = snapshot.MaxLimit
	}

	start := time.Now()
	executed, err := s.runStrategy(ctx, method, provider, snapshot, req, limit, exec)

	// The vector method gets one text retry on any runtime failure.
	if err != nil && method == MethodVector {
		logger.Warn("vector search failed, retrying with text",
			slog.String("error", err.Error()))
		metrics.SearchFallbacks.WithLabelValues(string(MethodVector), "runtime_error").Inc()
		executed, err = s.runStrategy(ctx, MethodText, nil, snapshot, req, limit, exec)
	}
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		executed = method
	}
	metrics.SearchRequests.WithLabelValues(string(entity), string(executed), status).Inc()
	metrics.SearchDuration.WithLabelValues(string(entity), string(executed)).Observe(elapsed.Seconds())

	if err != nil {
		return "", 0, err
	}
	return executed, roundMs(elapsed), nil
}

// runStrategy plans with the method's strategy and executes the plan. The
// returned method is derived from the executed plan, so a hybrid call that
// degraded to text inside the strategy reports text.
func (s *Service) runStrategy(ctx context.Context, method Method, provider embedding.Service, snapshot Snapshot, req *Request, limit int, exec func(context.Context, *store.SearchOptions) error) (Method, error) {
	var strategy Strategy
	switch method {
	case MethodVector:
		strategy = vectorStrategy{provider: provider}
	case MethodHybrid:
		strategy = hybridStrategy{
			provider:     provider,
			textWeight:   snapshot.TextWeight,
			vectorWeight: snapshot.VectorWeight,
		}
	default:
		strategy = textStrategy{}
	}

	opts, err := strategy.Search(ctx, req.Query, limit)
	if err != nil {
		return method, err
	}
	opts.Filters = req.Filters
	opts.RangeFilters = req.RangeFilters

	if err := exec(ctx, opts); err != nil {
		return method, err
	}
	return Method(opts.Mode), nil
}

func roundMs(elapsed time.Duration) float64 {
	return math.Round(elapsed.Seconds()*1000*100) / 100
}
