package store

import "context"

// User is an account that can authenticate against the API. Only superusers
// may call admin and write endpoints.
type User struct {
	ID             int32
	Email          string
	HashedPassword string
	FullName       string
	IsActive       bool
	IsSuperuser    bool
	CreatedTs      int64
	UpdatedTs      int64
}

// FindUser is the find condition for users.
type FindUser struct {
	ID    *int32
	Email *string
}

// UpdateUser is the update request for a user.
type UpdateUser struct {
	ID             int32
	Email          *string
	HashedPassword *string
	FullName       *string
	IsActive       *bool
	IsSuperuser    *bool
}

// DeleteUser is the delete request for a user.
type DeleteUser struct {
	ID int32
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	return s.driver.CreateUser(ctx, create)
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// GetUser gets a user by its find condition, or nil when absent.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	return s.driver.UpdateUser(ctx, update)
}

func (s *Store) DeleteUser(ctx context.Context, delete *DeleteUser) error {
	return s.driver.DeleteUser(ctx, delete)
}
