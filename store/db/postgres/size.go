package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/a8ns/storefront/store"
)

func (d *DB) CreateSize(ctx context.Context, create *store.Size) (*store.Size, error) {
	stmt := `INSERT INTO size (name)
		VALUES (` + placeholder(1) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, create.Name).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create size")
	}

	return create, nil
}

func (d *DB) ListSizes(ctx context.Context, find *store.FindSize) ([]*store.Size, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Name != nil {
		where, args = append(where, "name = "+placeholder(len(args)+1)), append(args, *find.Name)
	}

	query := `SELECT id, name FROM size WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sizes")
	}
	defer rows.Close()

	list := []*store.Size{}
	for rows.Next() {
		var size store.Size
		if err := rows.Scan(&size.ID, &size.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan size")
		}
		list = append(list, &size)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) DeleteSize(ctx context.Context, delete *store.DeleteSize) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM size WHERE id = `+placeholder(1), delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete size")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("size %d not found", delete.ID)
	}
	return nil
}
