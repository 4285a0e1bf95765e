package db

import (
	"github.com/pkg/errors"

	"github.com/a8ns/storefront/internal/profile"
	"github.com/a8ns/storefront/store"
	"github.com/a8ns/storefront/store/db/postgres"
)

// NewDBDriver creates new db driver based on profile.
//
// Only PostgreSQL is supported: full-text ranking, the vector extension and
// the embedding operators all assume it.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' is supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
