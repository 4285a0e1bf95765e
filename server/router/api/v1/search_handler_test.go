package v1

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serviceerrors "github.com/a8ns/storefront/internal/errors"
	"github.com/a8ns/storefront/server/search"
	"github.com/a8ns/storefront/store"
)

func scoredProducts() []*store.ProductWithScore {
	categoryID := int32(3)
	return []*store.ProductWithScore{
		{
			Product: &store.Product{
				ID:         1,
				Title:      "Trail Runner",
				Price:      129.90,
				Brand:      "Acme",
				CategoryID: &categoryID,
				Tags:       []string{"running"},
			},
			Relevance: 0.92,
		},
		{
			Product:   &store.Product{ID: 2, Title: "Road Runner", Price: 99.00, Brand: "Acme"},
			Relevance: 0.4,
		},
	}
}

func TestSearchProductsEndpoint(t *testing.T) {
	_, driver, e := newTestService(t)
	driver.searchProductsFunc = func(_ context.Context, _ *store.SearchOptions) ([]*store.ProductWithScore, error) {
		return scoredProducts(), nil
	}

	rec := doRequest(t, e, http.MethodGet, "/api/v1/search/products?q=trail+shoes", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[search.ProductResponse](t, rec)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "trail shoes", resp.Query)
	assert.Equal(t, search.MethodText, resp.Method)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Trail Runner", resp.Results[0].Title)
	assert.InDelta(t, 0.92, resp.Results[0].Relevance, 1e-9)

	require.NotNil(t, driver.lastSearchOptions)
	assert.Equal(t, store.SearchModeText, driver.lastSearchOptions.Mode)
	assert.Equal(t, "trail & shoes", driver.lastSearchOptions.TSQuery)
}

func TestSearchProductsFilterPassthrough(t *testing.T) {
	_, driver, e := newTestService(t)

	rec := doRequest(t, e, http.MethodGet,
		"/api/v1/search/products?q=shoes&category_id=3&brand=Acme&min_price=50&max_price=150&limit=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	opts := driver.lastSearchOptions
	require.NotNil(t, opts)
	assert.Equal(t, int32(3), opts.Filters["category_id"])
	assert.Equal(t, "Acme", opts.Filters["brand"])
	priceRange, ok := opts.RangeFilters["price"]
	require.True(t, ok)
	require.NotNil(t, priceRange.Min)
	require.NotNil(t, priceRange.Max)
	assert.Equal(t, 50.0, *priceRange.Min)
	assert.Equal(t, 150.0, *priceRange.Max)
	assert.Equal(t, 5, opts.Limit)
}

func TestSearchProductsInvalidMethod(t *testing.T) {
	_, driver, e := newTestService(t)

	rec := doRequest(t, e, http.MethodGet, "/api/v1/search/products?q=shoes&method=bm25", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid search method")
	assert.Nil(t, driver.lastSearchOptions, "the store must not be hit for an invalid method")
}

func TestSearchProductsQuerySyntaxError(t *testing.T) {
	_, driver, e := newTestService(t)
	driver.searchProductsFunc = func(_ context.Context, _ *store.SearchOptions) ([]*store.ProductWithScore, error) {
		return nil, serviceerrors.QuerySyntax("invalid search query syntax", errors.New("syntax error in tsquery"))
	}

	rec := doRequest(t, e, http.MethodGet, "/api/v1/search/products?q=shoes", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid search query syntax")
}

func TestSearchProductsStoreFailure(t *testing.T) {
	_, driver, e := newTestService(t)
	driver.searchProductsFunc = func(_ context.Context, _ *store.SearchOptions) ([]*store.ProductWithScore, error) {
		return nil, errors.New("connection reset by peer")
	}

	rec := doRequest(t, e, http.MethodGet, "/api/v1/search/products?q=shoes", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset", "raw store errors must not leak")
}

func TestSearchProductsVectorDisabledDowngrades(t *testing.T) {
	_, driver, e := newTestService(t)
	driver.searchProductsFunc = func(_ context.Context, _ *store.SearchOptions) ([]*store.ProductWithScore, error) {
		return scoredProducts()[:1], nil
	}

	rec := doRequest(t, e, http.MethodGet, "/api/v1/search/products?q=shoes&method=vector", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[search.ProductResponse](t, rec)
	assert.Equal(t, search.MethodText, resp.Method, "disabled vector search downgrades to text")
	require.NotNil(t, driver.lastSearchOptions)
	assert.Equal(t, store.SearchModeText, driver.lastSearchOptions.Mode)
	assert.Empty(t, driver.lastSearchOptions.QueryVector)
}

func TestSearchCategoriesEndpoint(t *testing.T) {
	_, driver, e := newTestService(t)
	driver.searchCategoriesFunc = func(_ context.Context, _ *store.SearchOptions) ([]*store.CategoryWithScore, error) {
		return []*store.CategoryWithScore{
			{Category: &store.Category{ID: 7, Name: "Footwear", ProductCount: 12}, Relevance: 0.8},
		}, nil
	}

	rec := doRequest(t, e, http.MethodGet, "/api/v1/search/categories?q=shoes", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[search.CategoryResponse](t, rec)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Footwear", resp.Results[0].Name)
	assert.Equal(t, int64(12), resp.Results[0].ProductCount)
}

func TestSearchEmptyQuery(t *testing.T) {
	_, _, e := newTestService(t)

	rec := doRequest(t, e, http.MethodGet, "/api/v1/search/products?q=", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[search.ProductResponse](t, rec)
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.Results)
}
