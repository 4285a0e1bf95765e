// Package v1 implements the JSON REST API: entity CRUD, authentication, the
// search and embedding-admin endpoints, and the product RSS feed.
package v1

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/a8ns/storefront/internal/profile"
	"github.com/a8ns/storefront/server/middleware"
	"github.com/a8ns/storefront/server/runner/backfill"
	"github.com/a8ns/storefront/server/search"
	"github.com/a8ns/storefront/store"
)

// BackfillRunner is the slice of the embedding backfill runner the API uses.
type BackfillRunner interface {
	RunOnce(ctx context.Context, entity backfill.Entity, batchSize int) (*backfill.BatchResult, error)
	Status(ctx context.Context, entity backfill.Entity) (*backfill.Report, error)
}

type APIV1Service struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	SearchService  *search.Service
	SearchSettings *search.Settings
	BackfillRunner BackfillRunner

	// searchLimiter throttles the public search endpoints per client IP.
	searchLimiter *middleware.RateLimiter
}

func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store, searchService *search.Service, runner *backfill.Runner) *APIV1Service {
	return &APIV1Service{
		Secret:         secret,
		Profile:        profile,
		Store:          store,
		SearchService:  searchService,
		SearchSettings: searchService.Settings(),
		BackfillRunner: runner,
		searchLimiter:  middleware.NewRateLimiter(profile.RateLimitRPS, profile.RateLimitBurst),
	}
}

// RegisterRoutes mounts the API under /api/v1 and the feed at its public path.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	apiV1 := e.Group("/api/v1")

	s.registerAuthRoutes(apiV1)
	s.registerShopRoutes(apiV1)
	s.registerCategoryRoutes(apiV1)
	s.registerProductRoutes(apiV1)
	s.registerColorRoutes(apiV1)
	s.registerSizeRoutes(apiV1)
	s.registerInventoryRoutes(apiV1)
	s.registerSearchRoutes(apiV1)
	s.registerAdminRoutes(apiV1)

	s.registerFeedRoutes(e)
}
