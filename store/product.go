package store

import (
	"context"
	"fmt"
	"strings"
)

// Product is the object representing a sellable product.
// The search_text projection is recomputed from title, description, brand,
// tags and the joined category name inside every INSERT/UPDATE statement.
// The embedding is populated asynchronously by the backfill runner; a
// content-affecting update leaves the old embedding in place until the
// backfill revisits the row.
type Product struct {
	ID            int32
	UID           string
	ShopID        int32
	Title         string
	Description   string
	Price         float64
	Brand         string
	ArticleNumber string
	Barcode       string
	ImageURL      string
	InStock       bool
	StockQuantity int32
	CategoryID    *int32
	Tags          []string
	IsActive      bool
	CreatedTs     int64
	UpdatedTs     int64

	// CategoryName is derived on reads via the category join.
	CategoryName string
	// HasEmbedding reports whether the embedding column is non-null.
	HasEmbedding bool
}

// BuildSearchText returns the text the embedding is generated from. It must
// stay aligned with the search_text projection computed in SQL.
func (p *Product) BuildSearchText() string {
	parts := []string{p.Title, p.Description, p.Brand, strings.Join(p.Tags, " "), p.CategoryName}
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// FindProduct is the find condition for products.
type FindProduct struct {
	ID         *int32
	UID        *string
	ShopID     *int32
	CategoryID *int32
	Brand      *string
	InStock    *bool
	IsActive   *bool

	Limit  *int
	Offset *int
}

// UpdateProduct is the update request for a product.
type UpdateProduct struct {
	ID            int32
	Title         *string
	Description   *string
	Price         *float64
	Brand         *string
	ArticleNumber *string
	Barcode       *string
	ImageURL      *string
	InStock       *bool
	StockQuantity *int32
	CategoryID    *int32
	Tags          []string
	IsActive      *bool
}

// DeleteProduct is the delete request for a product.
type DeleteProduct struct {
	ID int32
}

func (s *Store) CreateProduct(ctx context.Context, create *Product) (*Product, error) {
	product, err := s.driver.CreateProduct(ctx, create)
	if err != nil {
		return nil, err
	}
	s.productCache.Set(productCacheKey(product.ID), product)
	return product, nil
}

func (s *Store) ListProducts(ctx context.Context, find *FindProduct) ([]*Product, error) {
	return s.driver.ListProducts(ctx, find)
}

// GetProduct gets a product by ID, consulting the read-through cache first.
func (s *Store) GetProduct(ctx context.Context, id int32) (*Product, error) {
	if cached, ok := s.productCache.Get(productCacheKey(id)); ok {
		if product, ok := cached.(*Product); ok {
			return product, nil
		}
	}
	list, err := s.driver.ListProducts(ctx, &FindProduct{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	s.productCache.Set(productCacheKey(id), list[0])
	return list[0], nil
}

// GetProductFresh bypasses the cache; the backfill runner uses it to re-read
// an entity immediately before embedding it.
func (s *Store) GetProductFresh(ctx context.Context, id int32) (*Product, error) {
	list, err := s.driver.ListProducts(ctx, &FindProduct{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateProduct(ctx context.Context, update *UpdateProduct) (*Product, error) {
	product, err := s.driver.UpdateProduct(ctx, update)
	if err != nil {
		return nil, err
	}
	s.productCache.Delete(productCacheKey(update.ID))
	return product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, delete *DeleteProduct) error {
	if err := s.driver.DeleteProduct(ctx, delete); err != nil {
		return err
	}
	s.productCache.Delete(productCacheKey(delete.ID))
	return nil
}

// ListProductsWithoutEmbedding returns up to limit products whose embedding
// is null, ordered by primary key so no subset is starved across batches.
func (s *Store) ListProductsWithoutEmbedding(ctx context.Context, limit int) ([]*Product, error) {
	return s.driver.ListProductsWithoutEmbedding(ctx, limit)
}

// CountProductsWithoutEmbedding counts products pending backfill.
func (s *Store) CountProductsWithoutEmbedding(ctx context.Context) (int64, error) {
	return s.driver.CountProductsWithoutEmbedding(ctx)
}

// CountProducts counts all products.
func (s *Store) CountProducts(ctx context.Context) (int64, error) {
	return s.driver.CountProducts(ctx)
}

// UpdateProductEmbedding writes the embedding column and nothing else,
// keeping the write transaction minimal.
func (s *Store) UpdateProductEmbedding(ctx context.Context, id int32, embedding []float32) error {
	if err := s.driver.UpdateProductEmbedding(ctx, id, embedding); err != nil {
		return err
	}
	s.productCache.Delete(productCacheKey(id))
	return nil
}

func productCacheKey(id int32) string {
	return fmt.Sprintf("product:%d", id)
}
