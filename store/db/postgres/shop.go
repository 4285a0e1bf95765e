package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/a8ns/storefront/store"
)

func (d *DB) CreateShop(ctx context.Context, create *store.Shop) (*store.Shop, error) {
	fields := []string{"title", "description", "address", "city", "latitude", "longitude", "phone", "email", "is_active", "created_ts", "updated_ts"}

	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = now
	}

	args := []any{
		create.Title,
		create.Description,
		create.Address,
		create.City,
		create.Latitude,
		create.Longitude,
		create.Phone,
		create.Email,
		create.IsActive,
		create.CreatedTs,
		create.UpdatedTs,
	}

	stmt := `INSERT INTO shop (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create shop")
	}

	return create, nil
}

func (d *DB) ListShops(ctx context.Context, find *store.FindShop) ([]*store.Shop, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.City != nil {
		where, args = append(where, "city = "+placeholder(len(args)+1)), append(args, *find.City)
	}
	if find.IsActive != nil {
		where, args = append(where, "is_active = "+placeholder(len(args)+1)), append(args, *find.IsActive)
	}

	query := `SELECT id, title, description, address, city, latitude, longitude, phone, email, is_active, created_ts, updated_ts
		FROM shop
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`

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
		return nil, errors.Wrap(err, "failed to list shops")
	}
	defer rows.Close()

	list := []*store.Shop{}
	for rows.Next() {
		var shop store.Shop
		err := rows.Scan(
			&shop.ID,
			&shop.Title,
			&shop.Description,
			&shop.Address,
			&shop.City,
			&shop.Latitude,
			&shop.Longitude,
			&shop.Phone,
			&shop.Email,
			&shop.IsActive,
			&shop.CreatedTs,
			&shop.UpdatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan shop")
		}
		list = append(list, &shop)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) UpdateShop(ctx context.Context, update *store.UpdateShop) (*store.Shop, error) {
	set, args := []string{}, []any{}

	if update.Title != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *update.Title)
	}
	if update.Description != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *update.Description)
	}
	if update.Address != nil {
		set, args = append(set, "address = "+placeholder(len(args)+1)), append(args, *update.Address)
	}
	if update.City != nil {
		set, args = append(set, "city = "+placeholder(len(args)+1)), append(args, *update.City)
	}
	if update.Latitude != nil {
		set, args = append(set, "latitude = "+placeholder(len(args)+1)), append(args, *update.Latitude)
	}
	if update.Longitude != nil {
		set, args = append(set, "longitude = "+placeholder(len(args)+1)), append(args, *update.Longitude)
	}
	if update.Phone != nil {
		set, args = append(set, "phone = "+placeholder(len(args)+1)), append(args, *update.Phone)
	}
	if update.Email != nil {
		set, args = append(set, "email = "+placeholder(len(args)+1)), append(args, *update.Email)
	}
	if update.IsActive != nil {
		set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *update.IsActive)
	}

	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, time.Now().Unix())

	args = append(args, update.ID)
	stmt := `UPDATE shop SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, title, description, address, city, latitude, longitude, phone, email, is_active, created_ts, updated_ts`

	shop := &store.Shop{}
	err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&shop.ID,
		&shop.Title,
		&shop.Description,
		&shop.Address,
		&shop.City,
		&shop.Latitude,
		&shop.Longitude,
		&shop.Phone,
		&shop.Email,
		&shop.IsActive,
		&shop.CreatedTs,
		&shop.UpdatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Errorf("shop %d not found", update.ID)
		}
		return nil, errors.Wrap(err, "failed to update shop")
	}

	return shop, nil
}

func (d *DB) DeleteShop(ctx context.Context, delete *store.DeleteShop) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM shop WHERE id = `+placeholder(1), delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete shop")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("shop %d not found", delete.ID)
	}
	return nil
}
