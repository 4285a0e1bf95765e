package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Shop model related methods.
	CreateShop(ctx context.Context, create *Shop) (*Shop, error)
	ListShops(ctx context.Context, find *FindShop) ([]*Shop, error)
	UpdateShop(ctx context.Context, update *UpdateShop) (*Shop, error)
	DeleteShop(ctx context.Context, delete *DeleteShop) error

	// Category model related methods.
	CreateCategory(ctx context.Context, create *Category) (*Category, error)
	ListCategories(ctx context.Context, find *FindCategory) ([]*Category, error)
	UpdateCategory(ctx context.Context, update *UpdateCategory) (*Category, error)
	DeleteCategory(ctx context.Context, delete *DeleteCategory) error

	// Product model related methods.
	CreateProduct(ctx context.Context, create *Product) (*Product, error)
	ListProducts(ctx context.Context, find *FindProduct) ([]*Product, error)
	UpdateProduct(ctx context.Context, update *UpdateProduct) (*Product, error)
	DeleteProduct(ctx context.Context, delete *DeleteProduct) error

	// Color model related methods.
	CreateColor(ctx context.Context, create *Color) (*Color, error)
	ListColors(ctx context.Context, find *FindColor) ([]*Color, error)
	DeleteColor(ctx context.Context, delete *DeleteColor) error

	// Size model related methods.
	CreateSize(ctx context.Context, create *Size) (*Size, error)
	ListSizes(ctx context.Context, find *FindSize) ([]*Size, error)
	DeleteSize(ctx context.Context, delete *DeleteSize) error

	// Inventory model related methods.
	CreateInventory(ctx context.Context, create *Inventory) (*Inventory, error)
	ListInventory(ctx context.Context, find *FindInventory) ([]*Inventory, error)
	UpdateInventory(ctx context.Context, update *UpdateInventory) (*Inventory, error)
	DeleteInventory(ctx context.Context, delete *DeleteInventory) error

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)
	DeleteUser(ctx context.Context, delete *DeleteUser) error

	// Search executes a scored query against a searchable entity type.
	SearchProducts(ctx context.Context, opts *SearchOptions) ([]*ProductWithScore, error)
	SearchCategories(ctx context.Context, opts *SearchOptions) ([]*CategoryWithScore, error)

	// Embedding backfill related methods. The embedding write is a minimal,
	// write-only statement; it never re-saves the full entity.
	ListProductsWithoutEmbedding(ctx context.Context, limit int) ([]*Product, error)
	CountProductsWithoutEmbedding(ctx context.Context) (int64, error)
	CountProducts(ctx context.Context) (int64, error)
	UpdateProductEmbedding(ctx context.Context, id int32, embedding []float32) error
	ListCategoriesWithoutEmbedding(ctx context.Context, limit int) ([]*Category, error)
	CountCategoriesWithoutEmbedding(ctx context.Context) (int64, error)
	CountCategories(ctx context.Context) (int64, error)
	UpdateCategoryEmbedding(ctx context.Context, id int32, embedding []float32) error
}
