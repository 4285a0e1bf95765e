package store

import (
	"context"
	"time"

	"github.com/a8ns/storefront/internal/profile"
	"github.com/a8ns/storefront/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Entity-by-ID read-through caches, invalidated on write.
	productCache  *cache.Cache
	categoryCache *cache.Cache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
	}

	return &Store{
		driver:        driver,
		profile:       profile,
		productCache:  cache.New(cacheConfig),
		categoryCache: cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// Ping verifies the underlying database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.GetDB().PingContext(ctx)
}

func (s *Store) Close() error {
	s.productCache.Close()
	s.categoryCache.Close()
	return s.driver.Close()
}
