package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/a8ns/storefront/store"
)

const inventoryColumns = "id, product_id, color_id, size_id, amount, short_description"

func (d *DB) CreateInventory(ctx context.Context, create *store.Inventory) (*store.Inventory, error) {
	fields := []string{"product_id", "color_id", "size_id", "amount", "short_description"}

	args := []any{
		create.ProductID,
		create.ColorID,
		create.SizeID,
		create.Amount,
		create.ShortDescription,
	}

	stmt := `INSERT INTO inventory (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create inventory")
	}

	return create, nil
}

func (d *DB) ListInventory(ctx context.Context, find *store.FindInventory) ([]*store.Inventory, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.ProductID != nil {
		where, args = append(where, "product_id = "+placeholder(len(args)+1)), append(args, *find.ProductID)
	}
	if find.ColorID != nil {
		where, args = append(where, "color_id = "+placeholder(len(args)+1)), append(args, *find.ColorID)
	}
	if find.SizeID != nil {
		where, args = append(where, "size_id = "+placeholder(len(args)+1)), append(args, *find.SizeID)
	}

	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`

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
		return nil, errors.Wrap(err, "failed to list inventory")
	}
	defer rows.Close()

	list := []*store.Inventory{}
	for rows.Next() {
		var inventory store.Inventory
		err := rows.Scan(
			&inventory.ID,
			&inventory.ProductID,
			&inventory.ColorID,
			&inventory.SizeID,
			&inventory.Amount,
			&inventory.ShortDescription,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan inventory")
		}
		list = append(list, &inventory)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) UpdateInventory(ctx context.Context, update *store.UpdateInventory) (*store.Inventory, error) {
	set, args := []string{}, []any{}

	if update.ColorID != nil {
		set, args = append(set, "color_id = "+placeholder(len(args)+1)), append(args, *update.ColorID)
	}
	if update.SizeID != nil {
		set, args = append(set, "size_id = "+placeholder(len(args)+1)), append(args, *update.SizeID)
	}
	if update.Amount != nil {
		set, args = append(set, "amount = "+placeholder(len(args)+1)), append(args, *update.Amount)
	}
	if update.ShortDescription != nil {
		set, args = append(set, "short_description = "+placeholder(len(args)+1)), append(args, *update.ShortDescription)
	}

	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE inventory SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING ` + inventoryColumns

	inventory := &store.Inventory{}
	err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&inventory.ID,
		&inventory.ProductID,
		&inventory.ColorID,
		&inventory.SizeID,
		&inventory.Amount,
		&inventory.ShortDescription,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Errorf("inventory %d not found", update.ID)
		}
		return nil, errors.Wrap(err, "failed to update inventory")
	}

	return inventory, nil
}

func (d *DB) DeleteInventory(ctx context.Context, delete *store.DeleteInventory) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM inventory WHERE id = `+placeholder(1), delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete inventory")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("inventory %d not found", delete.ID)
	}
	return nil
}
