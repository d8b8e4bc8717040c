package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/outbox"
)

const paymentSelect = `
	SELECT p.id, p.id_cita, p.id_usuario, p.monto, p.metodo, p.estado, p.comprobante, p.fecha_pago, p.notas,
		p.motivo_rechazo, COALESCE(p.id_aprobador, 0), p.created_at, p.updated_at, COALESCE(u.nombre, '')
	FROM pagos p
	LEFT JOIN usuarios u ON u.id = p.id_usuario`

type paymentEvent struct {
	ID            int64               `json:"id"`
	AppointmentID int64               `json:"id_cita"`
	ClientID      int64               `json:"id_usuario"`
	Amount        model.Money         `json:"monto"`
	Method        model.PaymentMethod `json:"metodo"`
	Status        model.PaymentStatus `json:"estado"`
	FechaPago     string              `json:"fecha_pago"`
}

func newPaymentEvent(p model.Payment) paymentEvent {
	return paymentEvent{
		ID:            p.ID,
		AppointmentID: p.AppointmentID,
		ClientID:      p.ClientID,
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        p.Status,
		FechaPago:     p.PaidOn.Format(model.DateLayout),
	}
}

func scanPayment(row pgx.Row) (model.Payment, error) {
	var (
		p              model.Payment
		amount         int64
		method, status string
	)
	err := row.Scan(&p.ID, &p.AppointmentID, &p.ClientID, &amount, &method, &status, &p.Receipt, &p.PaidOn, &p.Notes,
		&p.RejectReason, &p.ApproverID, &p.CreatedAt, &p.UpdatedAt, &p.ClientName)
	p.Amount = model.Money(amount)
	p.Method = model.PaymentMethod(method)
	p.Status = model.PaymentStatus(status)
	return p, err
}

func paymentWhere(f model.PaymentFilter) *where {
	w := &where{}
	if f.ClientID != 0 {
		w.add("p.id_usuario = $%d", f.ClientID)
	}
	if f.AppointmentID != 0 {
		w.add("p.id_cita = $%d", f.AppointmentID)
	}
	if f.Status != "" {
		w.add("p.estado = $%d", string(f.Status))
	}
	if f.Method != "" {
		w.add("p.metodo = $%d", string(f.Method))
	}
	if !f.From.IsZero() {
		w.add("p.fecha_pago >= $%d", model.DayOf(f.From))
	}
	if !f.To.IsZero() {
		w.add("p.fecha_pago <= $%d", model.DayOf(f.To))
	}
	return w
}

// RecordPayment inserts p after fn has seen, and possibly advanced, the
// locked appointment. Both rows and their events commit together.
func (s *Store) RecordPayment(ctx context.Context, p *model.Payment, fn func(*model.Appointment) error) error {
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		a, err := lockAppointment(ctx, tx, p.AppointmentID)
		if err != nil {
			return err
		}
		before := a.Status
		if fn != nil {
			if err := fn(&a); err != nil {
				return err
			}
		}
		if a.Status != before {
			if err := writeAppointment(ctx, tx, a.ID, a); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, outbox.AggregateAppointment, a.ID, outbox.AppointmentUpdated, newAppointmentEvent(a)); err != nil {
				return err
			}
		}

		var id int64
		err = tx.QueryRow(ctx, `
			INSERT INTO pagos (id_cita, id_usuario, monto, metodo, estado, comprobante, fecha_pago, notas, id_aprobador)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, p.AppointmentID, p.ClientID, int64(p.Amount), string(p.Method), string(p.Status), p.Receipt, p.PaidOn,
			p.Notes, nullableID(p.ApproverID)).Scan(&id)
		if err != nil {
			return translate(err, ErrInvalidReference)
		}
		stored, err := scanPayment(tx.QueryRow(ctx, paymentSelect+` WHERE p.id = $1`, id))
		if err != nil {
			return err
		}
		*p = stored
		return s.emit(ctx, tx, outbox.AggregatePayment, p.ID, outbox.PaymentRegistered, newPaymentEvent(*p))
	})
	return translate(err, nil)
}

func (s *Store) GetPayment(ctx context.Context, id int64) (model.Payment, error) {
	p, err := scanPayment(s.pool.QueryRow(ctx, paymentSelect+` WHERE p.id = $1`, id))
	return p, translate(err, nil)
}

func (s *Store) ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error) {
	w := paymentWhere(filter)
	rows, err := s.pool.Query(ctx, paymentSelect+w.String()+` ORDER BY p.id`, w.args...)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()

	out := make([]model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePayment locks the payment and its appointment, in that order, and
// writes back whatever fn changed on either.
func (s *Store) UpdatePayment(ctx context.Context, id int64, fn func(*model.Payment, *model.Appointment) error) (model.Payment, error) {
	var out model.Payment
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		p, err := scanPayment(tx.QueryRow(ctx, paymentSelect+` WHERE p.id = $1 FOR UPDATE OF p`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		a, err := lockAppointment(ctx, tx, p.AppointmentID)
		if err != nil {
			return err
		}
		beforeAppt, beforePay := a.Status, p.Status
		if err := fn(&p, &a); err != nil {
			return err
		}

		if a.Status != beforeAppt {
			if err := writeAppointment(ctx, tx, a.ID, a); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, outbox.AggregateAppointment, a.ID, outbox.AppointmentUpdated, newAppointmentEvent(a)); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `
			UPDATE pagos
			SET estado = $2, motivo_rechazo = $3, id_aprobador = $4, notas = $5, updated_at = (now() AT TIME ZONE 'UTC')
			WHERE id = $1
		`, id, string(p.Status), p.RejectReason, nullableID(p.ApproverID), p.Notes)
		if err != nil {
			return err
		}
		out, err = scanPayment(tx.QueryRow(ctx, paymentSelect+` WHERE p.id = $1`, id))
		if err != nil {
			return err
		}
		if out.Status != beforePay {
			return s.emit(ctx, tx, outbox.AggregatePayment, id, outbox.PaymentDecided(string(out.Status)), newPaymentEvent(out))
		}
		return nil
	})
	if err != nil {
		return model.Payment{}, translate(err, nil)
	}
	return out, nil
}
