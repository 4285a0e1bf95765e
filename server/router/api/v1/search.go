package v1

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	serviceerrors "github.com/a8ns/storefront/internal/errors"
	"github.com/a8ns/storefront/server/runner/backfill"
	"github.com/a8ns/storefront/server/search"
	"github.com/a8ns/storefront/store"
)

type EnableVectorSearchRequest struct {
	APIKey         string `json:"api_key"`
	EmbeddingModel string `json:"embedding_model"`
	Dimensions     int    `json:"dimensions"`
}

type EnableVectorSearchResponse struct {
	Status         string `json:"status"`
	Enabled        bool   `json:"enabled"`
	HasAPIKey      bool   `json:"has_api_key"`
	EmbeddingModel string `json:"embedding_model"`
	Dimensions     int    `json:"dimensions"`
}

func (s *APIV1Service) registerSearchRoutes(g *echo.Group) {
	searchGroup := g.Group("/search", s.searchLimiter.Middleware())
	searchGroup.GET("/products", s.searchProducts)
	searchGroup.GET("/categories", s.searchCategories)
}

func (s *APIV1Service) registerAdminRoutes(g *echo.Group) {
	adminGroup := g.Group("/admin", s.requireSuperuser)
	adminGroup.POST("/enable-vector-search", s.enableVectorSearch)
	adminGroup.POST("/backfill-embeddings", s.backfillEmbeddings)
	adminGroup.GET("/embedding-status", s.embeddingStatus)
}

// searchProducts handles GET /api/v1/search/products.
func (s *APIV1Service) searchProducts(c echo.Context) error {
	ctx := c.Request().Context()

	method, err := search.ParseMethod(c.QueryParam("method"))
	if err != nil {
		return toHTTPError(err)
	}
	limit, err := parseIntParam(c, "limit", 0)
	if err != nil {
		return err
	}

	filters := map[string]any{}
	categoryID, err := parseInt32Param(c, "category_id")
	if err != nil {
		return err
	}
	if categoryID != nil {
		filters["category_id"] = *categoryID
	}
	if brand := c.QueryParam("brand"); brand != "" {
		filters["brand"] = brand
	}

	rangeFilters := map[string]store.RangeFilter{}
	minPrice, err := parseFloatParam(c, "min_price")
	if err != nil {
		return err
	}
	maxPrice, err := parseFloatParam(c, "max_price")
	if err != nil {
		return err
	}
	if minPrice != nil || maxPrice != nil {
		rangeFilters["price"] = store.RangeFilter{Min: minPrice, Max: maxPrice}
	}

	resp, err := s.SearchService.SearchProducts(ctx, &search.Request{
		Query:        c.QueryParam("q"),
		Method:       method,
		Filters:      filters,
		RangeFilters: rangeFilters,
		Limit:        limit,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// searchCategories handles GET /api/v1/search/categories.
func (s *APIV1Service) searchCategories(c echo.Context) error {
	ctx := c.Request().Context()

	method, err := search.ParseMethod(c.QueryParam("method"))
	if err != nil {
		return toHTTPError(err)
	}
	limit, err := parseIntParam(c, "limit", 0)
	if err != nil {
		return err
	}

	resp, err := s.SearchService.SearchCategories(ctx, &search.Request{
		Query:  c.QueryParam("q"),
		Method: method,
		Limit:  limit,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// enableVectorSearch handles POST /api/v1/admin/enable-vector-search. It
// turns the feature on at runtime; an omitted api_key falls back to the
// configured one.
func (s *APIV1Service) enableVectorSearch(c echo.Context) error {
	req := &EnableVectorSearchRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed enable-vector-search request").SetInternal(err)
	}

	if err := s.SearchSettings.EnableVectorSearch(req.APIKey, req.EmbeddingModel, req.Dimensions); err != nil {
		return toHTTPError(err)
	}

	snapshot := s.SearchSettings.Snapshot()
	return c.JSON(http.StatusOK, &EnableVectorSearchResponse{
		Status:         "success",
		Enabled:        snapshot.Enabled,
		HasAPIKey:      true,
		EmbeddingModel: snapshot.Model,
		Dimensions:     snapshot.Dimensions,
	})
}

// backfillEmbeddings handles POST /api/v1/admin/backfill-embeddings. One
// batch runs in the background per call; the response reports the snapshot
// taken before the batch started. Chaining batches is the caller's job.
func (s *APIV1Service) backfillEmbeddings(c echo.Context) error {
	ctx := c.Request().Context()

	entity, err := backfill.ParseEntity(c.QueryParam("entity_type"))
	if err != nil {
		return toHTTPError(err)
	}
	batchSize, err := parseIntParam(c, "batch_size", 0)
	if err != nil {
		return err
	}

	if !s.SearchSettings.Enabled() {
		return toHTTPError(serviceerrors.FeatureDisabled("vector search is not enabled; call admin/enable-vector-search first"))
	}

	report, err := s.BackfillRunner.Status(ctx, entity)
	if err != nil {
		return toHTTPError(err)
	}
	if report.TotalRemaining == 0 {
		report.Status = backfill.StatusNothingToBackfill
		return c.JSON(http.StatusOK, report)
	}

	// The batch outlives the request; it carries the request ID for log
	// correlation but not the request deadline.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.BackfillRunner.RunOnce(runCtx, entity, batchSize); err != nil {
			slog.Error("background embedding backfill failed",
				slog.String("entity", string(entity)),
				slog.String("error", err.Error()))
		}
	}()

	report.Status = backfill.StatusStarted
	return c.JSON(http.StatusOK, report)
}

// embeddingStatus handles GET /api/v1/admin/embedding-status.
func (s *APIV1Service) embeddingStatus(c echo.Context) error {
	ctx := c.Request().Context()

	entity, err := backfill.ParseEntity(c.QueryParam("entity_type"))
	if err != nil {
		return toHTTPError(err)
	}
	report, err := s.BackfillRunner.Status(ctx, entity)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, report)
}
