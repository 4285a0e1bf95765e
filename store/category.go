package store

import (
	"context"
	"fmt"
	"strings"
)

// Category is the object representing a product category.
// The search_text projection is recomputed from name and description inside
// every INSERT/UPDATE statement, so it can never go stale relative to those
// fields. The embedding is populated asynchronously by the backfill runner
// and is allowed to lag behind content updates.
type Category struct {
	ID          int32
	Name        string
	Description string
	ParentID    *int32
	CreatedTs   int64
	UpdatedTs   int64

	// ProductCount is derived on reads; it is not a stored column.
	ProductCount int64
	// HasEmbedding reports whether the embedding column is non-null.
	HasEmbedding bool
}

// BuildSearchText returns the text the embedding is generated from. It must
// stay aligned with the search_text projection computed in SQL.
func (c *Category) BuildSearchText() string {
	parts := []string{c.Name, c.Description}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// FindCategory is the find condition for categories.
type FindCategory struct {
	ID       *int32
	ParentID *int32
	Name     *string

	Limit  *int
	Offset *int
}

// UpdateCategory is the update request for a category.
type UpdateCategory struct {
	ID          int32
	Name        *string
	Description *string
	ParentID    *int32
}

// DeleteCategory is the delete request for a category.
type DeleteCategory struct {
	ID int32
}

func (s *Store) CreateCategory(ctx context.Context, create *Category) (*Category, error) {
	category, err := s.driver.CreateCategory(ctx, create)
	if err != nil {
		return nil, err
	}
	s.categoryCache.Set(categoryCacheKey(category.ID), category)
	return category, nil
}

func (s *Store) ListCategories(ctx context.Context, find *FindCategory) ([]*Category, error) {
	return s.driver.ListCategories(ctx, find)
}

// GetCategory gets a category by ID, consulting the read-through cache first.
func (s *Store) GetCategory(ctx context.Context, id int32) (*Category, error) {
	if cached, ok := s.categoryCache.Get(categoryCacheKey(id)); ok {
		if category, ok := cached.(*Category); ok {
			return category, nil
		}
	}
	list, err := s.driver.ListCategories(ctx, &FindCategory{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	s.categoryCache.Set(categoryCacheKey(id), list[0])
	return list[0], nil
}

// GetCategoryFresh bypasses the cache; the backfill runner uses it to re-read
// an entity immediately before embedding it.
func (s *Store) GetCategoryFresh(ctx context.Context, id int32) (*Category, error) {
	list, err := s.driver.ListCategories(ctx, &FindCategory{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateCategory(ctx context.Context, update *UpdateCategory) (*Category, error) {
	category, err := s.driver.UpdateCategory(ctx, update)
	if err != nil {
		return nil, err
	}
	s.categoryCache.Delete(categoryCacheKey(update.ID))
	// A renamed category changes the projected category name on its products.
	s.productCache.Clear()
	return category, nil
}

func (s *Store) DeleteCategory(ctx context.Context, delete *DeleteCategory) error {
	if err := s.driver.DeleteCategory(ctx, delete); err != nil {
		return err
	}
	s.categoryCache.Delete(categoryCacheKey(delete.ID))
	// The FK resets category_id on the category's products, so their
	// projected category name changed too.
	s.productCache.Clear()
	return nil
}

// ListCategoriesWithoutEmbedding returns up to limit categories whose
// embedding is null.
func (s *Store) ListCategoriesWithoutEmbedding(ctx context.Context, limit int) ([]*Category, error) {
	return s.driver.ListCategoriesWithoutEmbedding(ctx, limit)
}

// CountCategoriesWithoutEmbedding counts categories pending backfill.
func (s *Store) CountCategoriesWithoutEmbedding(ctx context.Context) (int64, error) {
	return s.driver.CountCategoriesWithoutEmbedding(ctx)
}

// CountCategories counts all categories.
func (s *Store) CountCategories(ctx context.Context) (int64, error) {
	return s.driver.CountCategories(ctx)
}

// UpdateCategoryEmbedding writes the embedding column and nothing else.
func (s *Store) UpdateCategoryEmbedding(ctx context.Context, id int32, embedding []float32) error {
	if err := s.driver.UpdateCategoryEmbedding(ctx, id, embedding); err != nil {
		return err
	}
	s.categoryCache.Delete(categoryCacheKey(id))
	return nil
}

func categoryCacheKey(id int32) string {
	return fmt.Sprintf("category:%d", id)
}
