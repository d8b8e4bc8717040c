package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/slots"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storecall"
)

type Store interface {
	GetService(ctx context.Context, id int64) (model.Service, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id int64) (model.Appointment, error)
	ListAppointments(ctx context.Context, filter model.AppointmentFilter) ([]model.Appointment, error)
	UpdateAppointment(ctx context.Context, id int64, fn func(*model.Appointment) error) (model.Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error
}

type PaymentRegistrar interface {
	Register(ctx context.Context, actor model.Actor, req payments.RegisterRequest) (model.Payment, error)
}

// Writer is the only path that creates or moves appointments. Uniqueness of
// an active booking per instant is enforced by the store, not by a prior read.
type Writer struct {
	store    Store
	grid     *slots.Grid
	payments PaymentRegistrar
	policy   storecall.Policy
	logger   *slog.Logger
}

func NewWriter(store Store, grid *slots.Grid, registrar PaymentRegistrar, policy storecall.Policy, logger *slog.Logger) *Writer {
	return &Writer{store: store, grid: grid, payments: registrar, policy: policy, logger: logger}
}

// Schedule carries the requested instant either combined or split.
type Schedule struct {
	DateTime string
	Date     string
	Time     string
}

func (s Schedule) empty() bool {
	return strings.TrimSpace(s.DateTime) == "" && strings.TrimSpace(s.Date) == "" && strings.TrimSpace(s.Time) == ""
}

type CreateRequest struct {
	ClientID  int64
	ServiceID int64
	Schedule  Schedule
	Status    model.AppointmentStatus
	Notes     string

	// Optional payment intent registered after the booking is stored.
	PaymentMethod model.PaymentMethod
	Receipt       string
}

// CreateResult reports the booking and, separately, the outcome of the
// payment intent. A failed payment never undoes the booking.
type CreateResult struct {
	Appointment model.Appointment
	Payment     *model.Payment
	PaymentErr  error
}

func (w *Writer) Create(ctx context.Context, actor model.Actor, req CreateRequest) (CreateResult, error) {
	clientID := actor.UserID
	if actor.IsAdmin() && req.ClientID != 0 {
		clientID = req.ClientID
	}
	if clientID == 0 {
		return CreateResult{}, apperr.Validation("id_usuario is required")
	}
	if req.ServiceID <= 0 {
		return CreateResult{}, apperr.Validation("id_servicio is required")
	}
	at, err := w.resolveSchedule(req.Schedule)
	if err != nil {
		return CreateResult{}, err
	}

	status := model.StatusPending
	if req.Status != "" {
		if !actor.IsAdmin() && req.Status != model.StatusPending {
			return CreateResult{}, apperr.Forbidden("only admins can choose the initial status")
		}
		if !req.Status.Valid() || req.Status == model.StatusCancelled {
			return CreateResult{}, apperr.Validation("invalid initial estado %q", req.Status)
		}
		status = req.Status
	}
	if req.PaymentMethod != "" && !req.PaymentMethod.Valid() {
		return CreateResult{}, apperr.Validation("metodo_pago must be one of efectivo, tarjeta, transferencia (got %q)", req.PaymentMethod)
	}

	svc, err := w.service(ctx, req.ServiceID)
	if err != nil {
		return CreateResult{}, err
	}

	appt := model.Appointment{
		ClientID:    clientID,
		ServiceID:   svc.ID,
		ScheduledAt: at,
		Status:      status,
		Notes:       strings.TrimSpace(req.Notes),
	}
	err = storecall.Exec(ctx, w.policy, "create appointment", func(ctx context.Context) error {
		return w.store.CreateAppointment(ctx, &appt)
	})
	if err != nil {
		return CreateResult{}, translate(err, at)
	}
	w.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"client_id", appt.ClientID,
		"scheduled_at", appt.ScheduledAt.Format(model.DateTimeLayout),
	)

	res := CreateResult{Appointment: appt}
	if req.PaymentMethod == "" {
		return res, nil
	}
	p, err := w.payments.Register(ctx, actor, payments.RegisterRequest{
		AppointmentID: appt.ID,
		ClientID:      appt.ClientID,
		Amount:        svc.Price,
		Method:        req.PaymentMethod,
		Receipt:       req.Receipt,
	})
	if err != nil {
		w.logger.Warn("payment intent failed after booking", "appointment_id", appt.ID, "err", err)
		res.PaymentErr = err
		return res, nil
	}
	res.Payment = &p
	if p.Status == model.PaymentApproved {
		if fresh, err := w.store.GetAppointment(ctx, appt.ID); err == nil {
			res.Appointment = fresh
		}
	}
	return res, nil
}

type UpdateRequest struct {
	// ClientID reassigns the appointment. Only admins may change it.
	ClientID  *int64
	ServiceID *int64
	Schedule  Schedule
	Notes     *string
	Status    *model.AppointmentStatus
}

// Update edits an appointment in place. A new time is checked against every
// other active booking; on conflict the stored appointment is unchanged.
func (w *Writer) Update(ctx context.Context, actor model.Actor, id int64, req UpdateRequest) (model.Appointment, error) {
	var at time.Time
	if !req.Schedule.empty() {
		var err error
		if at, err = w.resolveSchedule(req.Schedule); err != nil {
			return model.Appointment{}, err
		}
	}
	if req.ServiceID != nil {
		if _, err := w.service(ctx, *req.ServiceID); err != nil {
			return model.Appointment{}, err
		}
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return model.Appointment{}, apperr.Validation("invalid estado %q", *req.Status)
		}
	}

	updated, err := w.mutate(ctx, "update appointment", id, func(a *model.Appointment) error {
		if !actor.IsAdmin() {
			if !actor.Owns(a.ClientID) {
				return apperr.Forbidden("appointment %d belongs to another client", id)
			}
			if a.Status == model.StatusCompleted || a.Status == model.StatusCancelled {
				return apperr.State("appointment %d is %s and can no longer be changed", id, a.Status)
			}
			if req.ClientID != nil && *req.ClientID != a.ClientID {
				return apperr.Forbidden("only admins can reassign appointments")
			}
			// Resending the current status is not a transition.
			if req.Status != nil && *req.Status != a.Status && *req.Status != model.StatusCancelled {
				return apperr.Forbidden("clients can only cancel appointments")
			}
		}
		if req.ClientID != nil {
			a.ClientID = *req.ClientID
		}
		if !at.IsZero() {
			a.ScheduledAt = at
		}
		if req.ServiceID != nil {
			a.ServiceID = *req.ServiceID
		}
		if req.Notes != nil {
			a.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.Status != nil {
			a.Status = *req.Status
		}
		return nil
	}, at)
	if err != nil {
		return model.Appointment{}, err
	}
	w.logger.Info("appointment updated", "appointment_id", id, "status", updated.Status)
	return updated, nil
}

// SetStatus changes only the lifecycle status. Admins may set any status;
// the owning client may only cancel, and only before completion.
func (w *Writer) SetStatus(ctx context.Context, actor model.Actor, id int64, status model.AppointmentStatus) (model.Appointment, error) {
	if !status.Valid() {
		return model.Appointment{}, apperr.Validation("invalid estado %q", status)
	}
	if !actor.IsAdmin() && status != model.StatusCancelled {
		return model.Appointment{}, apperr.Forbidden("clients can only cancel appointments")
	}
	updated, err := w.mutate(ctx, "set appointment status", id, func(a *model.Appointment) error {
		if !actor.IsAdmin() {
			if !actor.Owns(a.ClientID) {
				return apperr.Forbidden("appointment %d belongs to another client", id)
			}
			if a.Status == model.StatusCompleted || a.Status == model.StatusCancelled {
				return apperr.State("appointment %d is already %s", id, a.Status)
			}
		}
		a.Status = status
		return nil
	}, time.Time{})
	if err != nil {
		return model.Appointment{}, err
	}
	w.logger.Info("appointment status changed", "appointment_id", id, "status", status, "by", actor.UserID)
	return updated, nil
}

// Cancel releases the slot while keeping the record.
func (w *Writer) Cancel(ctx context.Context, actor model.Actor, id int64) (model.Appointment, error) {
	return w.SetStatus(ctx, actor, id, model.StatusCancelled)
}

// Delete removes an appointment for good. Appointments with payments are kept.
func (w *Writer) Delete(ctx context.Context, actor model.Actor, id int64) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("only admins can delete appointments")
	}
	err := storecall.Exec(ctx, w.policy, "delete appointment", func(ctx context.Context) error {
		return w.store.DeleteAppointment(ctx, id)
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("appointment %d not found", id)
	case errors.Is(err, storage.ErrReferenced):
		return apperr.Wrap(apperr.KindDependency, err, "appointment %d has payments; cancel it instead", id)
	case err != nil:
		return err
	}
	w.logger.Info("appointment deleted", "appointment_id", id)
	return nil
}

func (w *Writer) Get(ctx context.Context, actor model.Actor, id int64) (model.Appointment, error) {
	a, err := storecall.Read(ctx, w.policy, "get appointment", func(ctx context.Context) (model.Appointment, error) {
		return w.store.GetAppointment(ctx, id)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return model.Appointment{}, apperr.NotFound("appointment %d not found", id)
	}
	if err != nil {
		return model.Appointment{}, err
	}
	if !actor.IsAdmin() && !actor.Owns(a.ClientID) {
		return model.Appointment{}, apperr.Forbidden("appointment %d belongs to another client", id)
	}
	return a, nil
}

// List returns appointments; clients only ever see their own.
func (w *Writer) List(ctx context.Context, actor model.Actor, filter model.AppointmentFilter) ([]model.Appointment, error) {
	if !actor.IsAdmin() {
		filter.ClientID = actor.UserID
	}
	return storecall.Read(ctx, w.policy, "list appointments", func(ctx context.Context) ([]model.Appointment, error) {
		return w.store.ListAppointments(ctx, filter)
	})
}

func (w *Writer) mutate(ctx context.Context, op string, id int64, fn func(*model.Appointment) error, at time.Time) (model.Appointment, error) {
	updated, err := storecall.Write(ctx, w.policy, op, func(ctx context.Context) (model.Appointment, error) {
		return w.store.UpdateAppointment(ctx, id, fn)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return model.Appointment{}, apperr.NotFound("appointment %d not found", id)
	}
	if err != nil {
		return model.Appointment{}, translate(err, at)
	}
	return updated, nil
}

func (w *Writer) service(ctx context.Context, id int64) (model.Service, error) {
	svc, err := storecall.Read(ctx, w.policy, "get service", func(ctx context.Context) (model.Service, error) {
		return w.store.GetService(ctx, id)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return model.Service{}, apperr.Validation("service %d does not exist", id)
	}
	return svc, err
}

// resolveSchedule turns the request into a wall-clock instant on the grid.
func (w *Writer) resolveSchedule(s Schedule) (time.Time, error) {
	var (
		at  time.Time
		err error
	)
	switch {
	case strings.TrimSpace(s.DateTime) != "":
		at, err = model.ParseDateTime(s.DateTime)
	case strings.TrimSpace(s.Date) != "" && strings.TrimSpace(s.Time) != "":
		at, err = model.CombineDateTime(s.Date, s.Time)
	default:
		return time.Time{}, apperr.Validation("fecha_hora, or fecha and hora, are required")
	}
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.KindValidation, err, "invalid schedule")
	}
	if !w.grid.Fits(at) {
		return time.Time{}, apperr.Validation("%s is not a bookable slot", model.SlotLabel(at))
	}
	return at, nil
}

func translate(err error, at time.Time) error {
	switch {
	case errors.Is(err, storage.ErrSlotTaken):
		when := "the requested time"
		if !at.IsZero() {
			when = at.Format(model.DateTimeLayout)
		}
		return apperr.Wrap(apperr.KindConflict, err, "%s is no longer available", when)
	case errors.Is(err, storage.ErrInvalidReference):
		return apperr.Wrap(apperr.KindValidation, err, "client or service does not exist")
	}
	return err
}
