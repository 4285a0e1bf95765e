package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/a8ns/storefront/store"
)

// categoryColumns are the base columns scanned into store.Category, followed
// in queries by the derived product_count and has_embedding expressions.
const categoryColumns = "c.id, c.name, c.description, c.parent_id, c.created_ts, c.updated_ts"

func (d *DB) CreateCategory(ctx context.Context, create *store.Category) (*store.Category, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = now
	}

	// search_text is projected from name and description in the same
	// statement so it can never go stale relative to the stored row.
	stmt := `INSERT INTO category (name, description, parent_id, search_text, created_ts, updated_ts)
		VALUES ($1, $2, $3, to_tsvector('english', $1 || ' ' || $2), $4, $5)
		RETURNING id`

	err := d.db.QueryRowContext(ctx, stmt,
		create.Name,
		create.Description,
		create.ParentID,
		create.CreatedTs,
		create.UpdatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create category")
	}

	return create, nil
}

func (d *DB) ListCategories(ctx context.Context, find *store.FindCategory) ([]*store.Category, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "c.id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.ParentID != nil {
		where, args = append(where, "c.parent_id = "+placeholder(len(args)+1)), append(args, *find.ParentID)
	}
	if find.Name != nil {
		where, args = append(where, "c.name = "+placeholder(len(args)+1)), append(args, *find.Name)
	}

	query := `SELECT ` + categoryColumns + `,
			(SELECT COUNT(*) FROM product p WHERE p.category_id = c.id) AS product_count,
			c.embedding IS NOT NULL AS has_embedding
		FROM category c
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY c.name ASC, c.id ASC`

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
		return nil, errors.Wrap(err, "failed to list categories")
	}
	defer rows.Close()

	list := []*store.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, category)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) UpdateCategory(ctx context.Context, update *store.UpdateCategory) (*store.Category, error) {
	set, args := []string{}, []any{}

	// Expressions feeding the search_text recompute. SET clauses evaluate
	// against the pre-update row, so fields being changed must reference
	// their placeholder rather than the column.
	nameExpr, descExpr := "name", "description"

	if update.Name != nil {
		set, args = append(set, "name = "+placeholder(len(args)+1)), append(args, *update.Name)
		nameExpr = placeholder(len(args))
	}
	if update.Description != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *update.Description)
		descExpr = placeholder(len(args))
	}
	if update.ParentID != nil {
		set, args = append(set, "parent_id = "+placeholder(len(args)+1)), append(args, *update.ParentID)
	}

	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	set = append(set, "search_text = to_tsvector('english', "+nameExpr+" || ' ' || "+descExpr+")")
	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, time.Now().Unix())

	args = append(args, update.ID)
	stmt := `UPDATE category c SET ` + strings.Join(set, ", ") + ` WHERE c.id = ` + placeholder(len(args)) + `
		RETURNING ` + categoryColumns + `,
			(SELECT COUNT(*) FROM product p WHERE p.category_id = c.id),
			c.embedding IS NOT NULL`

	category, err := scanCategory(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("category %d not found", update.ID)
		}
		return nil, errors.Wrap(err, "failed to update category")
	}

	return category, nil
}

func (d *DB) DeleteCategory(ctx context.Context, delete *store.DeleteCategory) error {
	// Products keep existing with category_id reset by the FK's ON DELETE SET
	// NULL; their stale search_text is refreshed on their next update.
	result, err := d.db.ExecContext(ctx, `DELETE FROM category WHERE id = `+placeholder(1), delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete category")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("category %d not found", delete.ID)
	}
	return nil
}

// ListCategoriesWithoutEmbedding returns categories pending embedding
// backfill, ordered by primary key so repeated batches make forward progress.
func (d *DB) ListCategoriesWithoutEmbedding(ctx context.Context, limit int) ([]*store.Category, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + categoryColumns + `
		FROM category c
		WHERE c.embedding IS NULL
		ORDER BY c.id ASC
		LIMIT ` + placeholder(1)

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list categories without embedding")
	}
	defer rows.Close()

	list := []*store.Category{}
	for rows.Next() {
		var category store.Category
		err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.ParentID,
			&category.CreatedTs,
			&category.UpdatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan category")
		}
		list = append(list, &category)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) CountCategoriesWithoutEmbedding(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM category WHERE embedding IS NULL`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count categories without embedding")
	}
	return count, nil
}

func (d *DB) CountCategories(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM category`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count categories")
	}
	return count, nil
}

// UpdateCategoryEmbedding writes only the embedding column. Content
// timestamps are left alone: the row's text did not change.
func (d *DB) UpdateCategoryEmbedding(ctx context.Context, id int32, embedding []float32) error {
	stmt := `UPDATE category SET embedding = ` + placeholder(1) + ` WHERE id = ` + placeholder(2)
	result, err := d.db.ExecContext(ctx, stmt, pgvector.NewVector(embedding), id)
	if err != nil {
		return errors.Wrap(err, "failed to update category embedding")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("category %d not found", id)
	}
	return nil
}

// scanCategory scans the categoryColumns projection plus the derived
// product_count and has_embedding expressions.
func scanCategory(row interface{ Scan(...any) error }) (*store.Category, error) {
	var category store.Category
	err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.ParentID,
		&category.CreatedTs,
		&category.UpdatedTs,
		&category.ProductCount,
		&category.HasEmbedding,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan category")
	}
	return &category, nil
}
