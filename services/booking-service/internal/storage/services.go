package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
)

const serviceColumns = `id, nombre, descripcion, precio, duracion, created_at`

func scanService(row pgx.Row) (model.Service, error) {
	var svc model.Service
	var price int64
	err := row.Scan(&svc.ID, &svc.Name, &svc.Description, &price, &svc.DurationMinutes, &svc.CreatedAt)
	svc.Price = model.Money(price)
	return svc, err
}

func (s *Store) CreateService(ctx context.Context, svc *model.Service) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO servicios (nombre, descripcion, precio, duracion)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, svc.Name, svc.Description, int64(svc.Price), svc.DurationMinutes).Scan(&svc.ID, &svc.CreatedAt)
	return translate(err, nil)
}

func (s *Store) GetService(ctx context.Context, id int64) (model.Service, error) {
	svc, err := scanService(s.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM servicios WHERE id = $1`, id))
	return svc, translate(err, nil)
}

func (s *Store) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+serviceColumns+` FROM servicios ORDER BY id`)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()

	out := make([]model.Service, 0)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *Store) UpdateService(ctx context.Context, id int64, fn func(*model.Service) error) (model.Service, error) {
	var svc model.Service
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		svc, err = scanService(tx.QueryRow(ctx, `SELECT `+serviceColumns+` FROM servicios WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(&svc); err != nil {
			return err
		}
		svc.ID = id
		_, err = tx.Exec(ctx, `
			UPDATE servicios
			SET nombre = $2, descripcion = $3, precio = $4, duracion = $5
			WHERE id = $1
		`, id, svc.Name, svc.Description, int64(svc.Price), svc.DurationMinutes)
		return err
	})
	if err != nil {
		return model.Service{}, translate(err, nil)
	}
	return svc, nil
}

func (s *Store) DeleteService(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM servicios WHERE id = $1`, id)
	if err != nil {
		return translate(err, ErrReferenced)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
