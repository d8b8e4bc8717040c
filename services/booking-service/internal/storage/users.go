package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
)

const userColumns = `id, nombre, email, telefono, password_hash, rol, created_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &role, &u.CreatedAt)
	u.Role = model.Role(role)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO usuarios (nombre, email, telefono, password_hash, rol)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, u.Name, u.Email, u.Phone, u.PasswordHash, string(u.Role)).Scan(&u.ID, &u.CreatedAt)
	return translate(err, nil)
}

func (s *Store) GetUser(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id = $1`, id))
	return u, translate(err, nil)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE lower(email) = lower($1)`, email))
	return u, translate(err, nil)
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM usuarios ORDER BY id`)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()

	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, id int64, fn func(*model.User) error) (model.User, error) {
	var u model.User
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		u, err = scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(&u); err != nil {
			return err
		}
		u.ID = id
		_, err = tx.Exec(ctx, `
			UPDATE usuarios
			SET nombre = $2, email = $3, telefono = $4, password_hash = $5, rol = $6
			WHERE id = $1
		`, id, u.Name, u.Email, u.Phone, u.PasswordHash, string(u.Role))
		return err
	})
	if err != nil {
		return model.User{}, translate(err, nil)
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return translate(err, ErrReferenced)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
