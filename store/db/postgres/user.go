package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/a8ns/storefront/store"
)

const userColumns = "id, email, hashed_password, full_name, is_active, is_superuser, created_ts, updated_ts"

func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	fields := []string{"email", "hashed_password", "full_name", "is_active", "is_superuser", "created_ts", "updated_ts"}

	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = now
	}

	args := []any{
		create.Email,
		create.HashedPassword,
		create.FullName,
		create.IsActive,
		create.IsSuperuser,
		create.CreatedTs,
		create.UpdatedTs,
	}

	stmt := `INSERT INTO users (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}

	return create, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Email != nil {
		where, args = append(where, "email = "+placeholder(len(args)+1)), append(args, *find.Email)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	list := []*store.User{}
	for rows.Next() {
		var user store.User
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.HashedPassword,
			&user.FullName,
			&user.IsActive,
			&user.IsSuperuser,
			&user.CreatedTs,
			&user.UpdatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		list = append(list, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error) {
	set, args := []string{}, []any{}

	if update.Email != nil {
		set, args = append(set, "email = "+placeholder(len(args)+1)), append(args, *update.Email)
	}
	if update.HashedPassword != nil {
		set, args = append(set, "hashed_password = "+placeholder(len(args)+1)), append(args, *update.HashedPassword)
	}
	if update.FullName != nil {
		set, args = append(set, "full_name = "+placeholder(len(args)+1)), append(args, *update.FullName)
	}
	if update.IsActive != nil {
		set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *update.IsActive)
	}
	if update.IsSuperuser != nil {
		set, args = append(set, "is_superuser = "+placeholder(len(args)+1)), append(args, *update.IsSuperuser)
	}

	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, time.Now().Unix())

	args = append(args, update.ID)
	stmt := `UPDATE users SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING ` + userColumns

	user := &store.User{}
	err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.FullName,
		&user.IsActive,
		&user.IsSuperuser,
		&user.CreatedTs,
		&user.UpdatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Errorf("user %d not found", update.ID)
		}
		return nil, errors.Wrap(err, "failed to update user")
	}

	return user, nil
}

func (d *DB) DeleteUser(ctx context.Context, delete *store.DeleteUser) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM users WHERE id = `+placeholder(1), delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("user %d not found", delete.ID)
	}
	return nil
}
