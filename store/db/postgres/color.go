package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/a8ns/storefront/store"
)

func (d *DB) CreateColor(ctx context.Context, create *store.Color) (*store.Color, error) {
	stmt := `INSERT INTO color (name, code)
		VALUES (` + placeholders(2) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, create.Name, create.Code).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create color")
	}

	return create, nil
}

func (d *DB) ListColors(ctx context.Context, find *store.FindColor) ([]*store.Color, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Name != nil {
		where, args = append(where, "name = "+placeholder(len(args)+1)), append(args, *find.Name)
	}

	query := `SELECT id, name, code FROM color WHERE ` + strings.Join(where, " AND ") + ` ORDER BY name ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list colors")
	}
	defer rows.Close()

	list := []*store.Color{}
	for rows.Next() {
		var color store.Color
		if err := rows.Scan(&color.ID, &color.Name, &color.Code); err != nil {
			return nil, errors.Wrap(err, "failed to scan color")
		}
		list = append(list, &color)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) DeleteColor(ctx context.Context, delete *store.DeleteColor) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM color WHERE id = `+placeholder(1), delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete color")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("color %d not found", delete.ID)
	}
	return nil
}
