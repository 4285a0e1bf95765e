package store

import "context"

// Size is a product size variant referenced by inventory rows.
type Size struct {
	ID   int32
	Name string
}

// FindSize is the find condition for sizes.
type FindSize struct {
	ID   *int32
	Name *string
}

// DeleteSize is the delete request for a size.
type DeleteSize struct {
	ID int32
}

func (s *Store) CreateSize(ctx context.Context, create *Size) (*Size, error) {
	return s.driver.CreateSize(ctx, create)
}

func (s *Store) ListSizes(ctx context.Context, find *FindSize) ([]*Size, error) {
	return s.driver.ListSizes(ctx, find)
}

func (s *Store) DeleteSize(ctx context.Context, delete *DeleteSize) error {
	return s.driver.DeleteSize(ctx, delete)
}
