package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/a8ns/storefront/store"
)

// productColumns are the base columns scanned into store.Product, followed in
// queries by the derived category_name and has_embedding expressions.
const productColumns = "p.id, p.uid, p.shop_id, p.title, p.description, p.price, p.brand, p.article_number, p.barcode, p.image_url, p.in_stock, p.stock_quantity, p.category_id, p.tags, p.is_active, p.created_ts, p.updated_ts"

// productSearchTextExpr rebuilds the search_text projection from the given
// value expressions. Pass column names for fields keeping their stored value
// and placeholders for fields being written in the same statement.
func productSearchTextExpr(title, description, brand, tags, categoryID string) string {
	return "to_tsvector('english', " + title + " || ' ' || " + description + " || ' ' || " + brand +
		" || ' ' || array_to_string(" + tags + ", ' ')" +
		" || ' ' || COALESCE((SELECT name FROM category WHERE id = " + categoryID + "), ''))"
}

func (d *DB) CreateProduct(ctx context.Context, create *store.Product) (*store.Product, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = now
	}
	if create.Tags == nil {
		create.Tags = []string{}
	}

	// The full projection is returned so the caller sees the derived
	// category_name the row was created with.
	stmt := `INSERT INTO product AS p (uid, shop_id, title, description, price, brand, article_number, barcode, image_url, in_stock, stock_quantity, category_id, tags, is_active, created_ts, updated_ts, search_text)
		VALUES (` + placeholders(16) + `, ` + productSearchTextExpr("$3", "$4", "$6", "$13", "$12") + `)
		RETURNING ` + productColumns + `,
			COALESCE((SELECT name FROM category c WHERE c.id = p.category_id), ''),
			p.embedding IS NOT NULL`

	product, err := scanProduct(d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.ShopID,
		create.Title,
		create.Description,
		create.Price,
		create.Brand,
		create.ArticleNumber,
		create.Barcode,
		create.ImageURL,
		create.InStock,
		create.StockQuantity,
		create.CategoryID,
		pq.Array(create.Tags),
		create.IsActive,
		create.CreatedTs,
		create.UpdatedTs,
	))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create product")
	}

	return product, nil
}

func (d *DB) ListProducts(ctx context.Context, find *store.FindProduct) ([]*store.Product, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "p.id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "p.uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.ShopID != nil {
		where, args = append(where, "p.shop_id = "+placeholder(len(args)+1)), append(args, *find.ShopID)
	}
	if find.CategoryID != nil {
		where, args = append(where, "p.category_id = "+placeholder(len(args)+1)), append(args, *find.CategoryID)
	}
	if find.Brand != nil {
		where, args = append(where, "p.brand = "+placeholder(len(args)+1)), append(args, *find.Brand)
	}
	if find.InStock != nil {
		where, args = append(where, "p.in_stock = "+placeholder(len(args)+1)), append(args, *find.InStock)
	}
	if find.IsActive != nil {
		where, args = append(where, "p.is_active = "+placeholder(len(args)+1)), append(args, *find.IsActive)
	}

	query := `SELECT ` + productColumns + `,
			COALESCE(c.name, '') AS category_name,
			p.embedding IS NOT NULL AS has_embedding
		FROM product p
		LEFT JOIN category c ON p.category_id = c.id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.created_ts DESC, p.id DESC`

	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
		if find.Offset != nil {
			query += " OFFSET " + placeholder(len(args)+1)
			args = append(args, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	defer rows.Close()

	list := []*store.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) UpdateProduct(ctx context.Context, update *store.UpdateProduct) (*store.Product, error) {
	set, args := []string{}, []any{}

	// Value expressions feeding the search_text recompute. SET clauses see
	// the pre-update row, so changed fields must reference their placeholder.
	titleExpr, descExpr, brandExpr, tagsExpr, categoryExpr := "title", "description", "brand", "tags", "category_id"

	if update.Title != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *update.Title)
		titleExpr = placeholder(len(args))
	}
	if update.Description != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *update.Description)
		descExpr = placeholder(len(args))
	}
	if update.Price != nil {
		set, args = append(set, "price = "+placeholder(len(args)+1)), append(args, *update.Price)
	}
	if update.Brand != nil {
		set, args = append(set, "brand = "+placeholder(len(args)+1)), append(args, *update.Brand)
		brandExpr = placeholder(len(args))
	}
	if update.ArticleNumber != nil {
		set, args = append(set, "article_number = "+placeholder(len(args)+1)), append(args, *update.ArticleNumber)
	}
	if update.Barcode != nil {
		set, args = append(set, "barcode = "+placeholder(len(args)+1)), append(args, *update.Barcode)
	}
	if update.ImageURL != nil {
		set, args = append(set, "image_url = "+placeholder(len(args)+1)), append(args, *update.ImageURL)
	}
	if update.InStock != nil {
		set, args = append(set, "in_stock = "+placeholder(len(args)+1)), append(args, *update.InStock)
	}
	if update.StockQuantity != nil {
		set, args = append(set, "stock_quantity = "+placeholder(len(args)+1)), append(args, *update.StockQuantity)
	}
	if update.CategoryID != nil {
		set, args = append(set, "category_id = "+placeholder(len(args)+1)), append(args, *update.CategoryID)
		categoryExpr = placeholder(len(args))
	}
	if update.Tags != nil {
		set, args = append(set, "tags = "+placeholder(len(args)+1)), append(args, pq.Array(update.Tags))
		tagsExpr = placeholder(len(args))
	}
	if update.IsActive != nil {
		set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *update.IsActive)
	}

	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	set = append(set, "search_text = "+productSearchTextExpr(titleExpr, descExpr, brandExpr, tagsExpr, categoryExpr))
	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, time.Now().Unix())

	args = append(args, update.ID)
	stmt := `UPDATE product p SET ` + strings.Join(set, ", ") + ` WHERE p.id = ` + placeholder(len(args)) + `
		RETURNING ` + productColumns + `,
			COALESCE((SELECT name FROM category c WHERE c.id = p.category_id), ''),
			p.embedding IS NOT NULL`

	product, err := scanProduct(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("product %d not found", update.ID)
		}
		return nil, errors.Wrap(err, "failed to update product")
	}

	return product, nil
}

func (d *DB) DeleteProduct(ctx context.Context, delete *store.DeleteProduct) error {
	// Inventory rows are owned by the product; remove them first.
	if _, err := d.db.ExecContext(ctx, `DELETE FROM inventory WHERE product_id = `+placeholder(1), delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete product inventory")
	}
	result, err := d.db.ExecContext(ctx, `DELETE FROM product WHERE id = `+placeholder(1), delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete product")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("product %d not found", delete.ID)
	}
	return nil
}

// ListProductsWithoutEmbedding returns products pending embedding backfill,
// ordered by primary key so repeated batches make forward progress. The
// category name rides along because the embedding text includes it.
func (d *DB) ListProductsWithoutEmbedding(ctx context.Context, limit int) ([]*store.Product, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + productColumns + `,
			COALESCE(c.name, '') AS category_name,
			p.embedding IS NOT NULL AS has_embedding
		FROM product p
		LEFT JOIN category c ON p.category_id = c.id
		WHERE p.embedding IS NULL
		ORDER BY p.id ASC
		LIMIT ` + placeholder(1)

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list products without embedding")
	}
	defer rows.Close()

	list := []*store.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) CountProductsWithoutEmbedding(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM product WHERE embedding IS NULL`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count products without embedding")
	}
	return count, nil
}

func (d *DB) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM product`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count products")
	}
	return count, nil
}

// UpdateProductEmbedding writes only the embedding column. Content timestamps
// are left alone: the row's text did not change.
func (d *DB) UpdateProductEmbedding(ctx context.Context, id int32, embedding []float32) error {
	stmt := `UPDATE product SET embedding = ` + placeholder(1) + ` WHERE id = ` + placeholder(2)
	result, err := d.db.ExecContext(ctx, stmt, pgvector.NewVector(embedding), id)
	if err != nil {
		return errors.Wrap(err, "failed to update product embedding")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("product %d not found", id)
	}
	return nil
}

// scanProduct scans the productColumns projection plus the derived
// category_name and has_embedding expressions.
func scanProduct(row interface{ Scan(...any) error }) (*store.Product, error) {
	var product store.Product
	err := row.Scan(
		&product.ID,
		&product.UID,
		&product.ShopID,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.Brand,
		&product.ArticleNumber,
		&product.Barcode,
		&product.ImageURL,
		&product.InStock,
		&product.StockQuantity,
		&product.CategoryID,
		pq.Array(&product.Tags),
		&product.IsActive,
		&product.CreatedTs,
		&product.UpdatedTs,
		&product.CategoryName,
		&product.HasEmbedding,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan product")
	}
	return &product, nil
}
