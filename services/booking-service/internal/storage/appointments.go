package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/outbox"
)

const appointmentSelect = `
	SELECT c.id, c.id_usuario, c.id_servicio, c.fecha_hora, c.estado, c.notas, c.created_at, c.updated_at,
		COALESCE(u.nombre, ''), COALESCE(s.nombre, ''), COALESCE(s.precio, 0)
	FROM citas c
	LEFT JOIN usuarios u ON u.id = c.id_usuario
	LEFT JOIN servicios s ON s.id = c.id_servicio`

type appointmentEvent struct {
	ID        int64                   `json:"id"`
	ClientID  int64                   `json:"id_usuario"`
	ServiceID int64                   `json:"id_servicio"`
	FechaHora string                  `json:"fecha_hora"`
	Estado    model.AppointmentStatus `json:"estado"`
}

func newAppointmentEvent(a model.Appointment) appointmentEvent {
	return appointmentEvent{
		ID:        a.ID,
		ClientID:  a.ClientID,
		ServiceID: a.ServiceID,
		FechaHora: a.ScheduledAt.Format(model.DateTimeLayout),
		Estado:    a.Status,
	}
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a      model.Appointment
		status string
		price  int64
	)
	err := row.Scan(&a.ID, &a.ClientID, &a.ServiceID, &a.ScheduledAt, &status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		&a.ClientName, &a.ServiceName, &price)
	a.Status = model.AppointmentStatus(status)
	a.Price = model.Money(price)
	return a, err
}

func appointmentWhere(f model.AppointmentFilter) *where {
	w := &where{}
	if f.ClientID != 0 {
		w.add("c.id_usuario = $%d", f.ClientID)
	}
	if !f.Day.IsZero() {
		day := model.DayOf(f.Day)
		w.add("c.fecha_hora >= $%d", day)
		w.add("c.fecha_hora < $%d", day.AddDate(0, 0, 1))
	}
	if f.ExcludeID != 0 {
		w.add("c.id <> $%d", f.ExcludeID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		w.add("c.estado = ANY($%d)", statuses)
	}
	return w
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO citas (id_usuario, id_servicio, fecha_hora, estado, notas)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, a.ClientID, a.ServiceID, a.ScheduledAt, string(a.Status), a.Notes).Scan(&id)
		if err != nil {
			return err
		}
		stored, err := scanAppointment(tx.QueryRow(ctx, appointmentSelect+` WHERE c.id = $1`, id))
		if err != nil {
			return err
		}
		*a = stored
		return s.emit(ctx, tx, outbox.AggregateAppointment, a.ID, outbox.AppointmentCreated, newAppointmentEvent(*a))
	})
	return translate(err, nil)
}

func (s *Store) GetAppointment(ctx context.Context, id int64) (model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx, appointmentSelect+` WHERE c.id = $1`, id))
	return a, translate(err, nil)
}

func (s *Store) ListAppointments(ctx context.Context, filter model.AppointmentFilter) ([]model.Appointment, error) {
	w := appointmentWhere(filter)
	rows, err := s.pool.Query(ctx, appointmentSelect+w.String()+` ORDER BY c.fecha_hora, c.id`, w.args...)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()

	out := make([]model.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAppointment locks the row, lets fn edit it and writes it back. A
// clash with another live booking surfaces as ErrSlotTaken from the partial
// unique index and rolls the whole change back.
func (s *Store) UpdateAppointment(ctx context.Context, id int64, fn func(*model.Appointment) error) (model.Appointment, error) {
	var out model.Appointment
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		a, err := lockAppointment(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(&a); err != nil {
			return err
		}
		if err := writeAppointment(ctx, tx, id, a); err != nil {
			return err
		}
		out, err = scanAppointment(tx.QueryRow(ctx, appointmentSelect+` WHERE c.id = $1`, id))
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, outbox.AggregateAppointment, id, outbox.AppointmentUpdated, newAppointmentEvent(out))
	})
	if err != nil {
		return model.Appointment{}, translate(err, nil)
	}
	return out, nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id int64) error {
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		a, err := lockAppointment(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM citas WHERE id = $1`, id); err != nil {
			return err
		}
		return s.emit(ctx, tx, outbox.AggregateAppointment, id, outbox.AppointmentDeleted, newAppointmentEvent(a))
	})
	return translate(err, ErrReferenced)
}

func lockAppointment(ctx context.Context, tx pgx.Tx, id int64) (model.Appointment, error) {
	a, err := scanAppointment(tx.QueryRow(ctx, appointmentSelect+` WHERE c.id = $1 FOR UPDATE OF c`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, ErrNotFound
	}
	return a, err
}

func writeAppointment(ctx context.Context, tx pgx.Tx, id int64, a model.Appointment) error {
	_, err := tx.Exec(ctx, `
		UPDATE citas
		SET id_usuario = $2, id_servicio = $3, fecha_hora = $4, estado = $5, notas = $6, updated_at = (now() AT TIME ZONE 'UTC')
		WHERE id = $1
	`, id, a.ClientID, a.ServiceID, a.ScheduledAt, string(a.Status), a.Notes)
	return err
}
