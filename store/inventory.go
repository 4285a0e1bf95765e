package store

import "context"

// Inventory is a stock row for one product/color/size combination.
type Inventory struct {
	ID               int32
	ProductID        int32
	ColorID          *int32
	SizeID           *int32
	Amount           int32
	ShortDescription string
}

// FindInventory is the find condition for inventory rows.
type FindInventory struct {
	ID        *int32
	ProductID *int32
	ColorID   *int32
	SizeID    *int32

	Limit  *int
	Offset *int
}

// UpdateInventory is the update request for an inventory row.
type UpdateInventory struct {
	ID               int32
	ColorID          *int32
	SizeID           *int32
	Amount           *int32
	ShortDescription *string
}

// DeleteInventory is the delete request for an inventory row.
type DeleteInventory struct {
	ID int32
}

func (s *Store) CreateInventory(ctx context.Context, create *Inventory) (*Inventory, error) {
	return s.driver.CreateInventory(ctx, create)
}

func (s *Store) ListInventory(ctx context.Context, find *FindInventory) ([]*Inventory, error) {
	return s.driver.ListInventory(ctx, find)
}

// GetInventory gets an inventory row by ID, or nil when absent.
func (s *Store) GetInventory(ctx context.Context, id int32) (*Inventory, error) {
	list, err := s.driver.ListInventory(ctx, &FindInventory{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateInventory(ctx context.Context, update *UpdateInventory) (*Inventory, error) {
	return s.driver.UpdateInventory(ctx, update)
}

func (s *Store) DeleteInventory(ctx context.Context, delete *DeleteInventory) error {
	return s.driver.DeleteInventory(ctx, delete)
}
