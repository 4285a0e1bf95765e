package store

import "context"

// Shop is the object representing a physical or online shop.
type Shop struct {
	ID          int32
	Title       string
	Description string
	Address     string
	City        string
	Latitude    float64
	Longitude   float64
	Phone       string
	Email       string
	IsActive    bool
	CreatedTs   int64
	UpdatedTs   int64
}

// FindShop is the find condition for shops.
type FindShop struct {
	ID       *int32
	City     *string
	IsActive *bool

	Limit  *int
	Offset *int
}

// UpdateShop is the update request for a shop.
type UpdateShop struct {
	ID          int32
	Title       *string
	Description *string
	Address     *string
	City        *string
	Latitude    *float64
	Longitude   *float64
	Phone       *string
	Email       *string
	IsActive    *bool
}

// DeleteShop is the delete request for a shop.
type DeleteShop struct {
	ID int32
}

func (s *Store) CreateShop(ctx context.Context, create *Shop) (*Shop, error) {
	return s.driver.CreateShop(ctx, create)
}

func (s *Store) ListShops(ctx context.Context, find *FindShop) ([]*Shop, error) {
	return s.driver.ListShops(ctx, find)
}

// GetShop gets a shop by its find condition, or nil when absent.
func (s *Store) GetShop(ctx context.Context, find *FindShop) (*Shop, error) {
	list, err := s.driver.ListShops(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateShop(ctx context.Context, update *UpdateShop) (*Shop, error) {
	return s.driver.UpdateShop(ctx, update)
}

func (s *Store) DeleteShop(ctx context.Context, delete *DeleteShop) error {
	return s.driver.DeleteShop(ctx, delete)
}
