package store

import "context"

// Color is a product color variant referenced by inventory rows.
type Color struct {
	ID   int32
	Name string
	Code string
}

// FindColor is the find condition for colors.
type FindColor struct {
	ID   *int32
	Name *string
}

// DeleteColor is the delete request for a color.
type DeleteColor struct {
	ID int32
}

func (s *Store) CreateColor(ctx context.Context, create *Color) (*Color, error) {
	return s.driver.CreateColor(ctx, create)
}

func (s *Store) ListColors(ctx context.Context, find *FindColor) ([]*Color, error) {
	return s.driver.ListColors(ctx, find)
}

func (s *Store) DeleteColor(ctx context.Context, delete *DeleteColor) error {
	return s.driver.DeleteColor(ctx, delete)
}
