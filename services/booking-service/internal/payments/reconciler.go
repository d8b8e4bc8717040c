package payments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storecall"
)

type Store interface {
	GetAppointment(ctx context.Context, id int64) (model.Appointment, error)
	ListAppointments(ctx context.Context, filter model.AppointmentFilter) ([]model.Appointment, error)
	RecordPayment(ctx context.Context, p *model.Payment, fn func(*model.Appointment) error) error
	GetPayment(ctx context.Context, id int64) (model.Payment, error)
	ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error)
	UpdatePayment(ctx context.Context, id int64, fn func(*model.Payment, *model.Appointment) error) (model.Payment, error)
}

// Reconciler keeps payment state and appointment state consistent.
type Reconciler struct {
	store  Store
	policy storecall.Policy
	logger *slog.Logger
	now    func() time.Time
}

func NewReconciler(store Store, policy storecall.Policy, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		policy: policy,
		logger: logger,
		now:    func() time.Time { return model.WallClock(time.Now()) },
	}
}

type RegisterRequest struct {
	AppointmentID int64
	// ClientID is honored for admins only; clients always pay as themselves.
	ClientID int64
	Amount   model.Money
	Method   model.PaymentMethod
	Receipt  string
	PaidOn   time.Time
	Notes    string
}

// Register records a payment. Cash is approved on the spot and, like an
// approval, completes a pending or confirmed appointment. Card and transfer
// payments wait for an admin decision.
func (r *Reconciler) Register(ctx context.Context, actor model.Actor, req RegisterRequest) (model.Payment, error) {
	switch {
	case req.AppointmentID <= 0:
		return model.Payment{}, apperr.Validation("id_cita is required")
	case req.Amount <= 0:
		return model.Payment{}, apperr.Validation("monto must be greater than zero")
	case !req.Method.Valid():
		return model.Payment{}, apperr.Validation("metodo must be one of efectivo, tarjeta, transferencia (got %q)", req.Method)
	}

	p := model.Payment{
		AppointmentID: req.AppointmentID,
		Amount:        req.Amount,
		Method:        req.Method,
		Status:        model.PaymentPending,
		Receipt:       req.Receipt,
		PaidOn:        model.DayOf(req.PaidOn),
		Notes:         req.Notes,
	}
	if req.PaidOn.IsZero() {
		p.PaidOn = model.DayOf(r.now())
	}
	if p.Method == model.MethodCash {
		p.Status = model.PaymentApproved
	}

	var advanced bool
	p, err := storecall.Write(ctx, r.policy, "record payment", func(ctx context.Context) (model.Payment, error) {
		err := r.store.RecordPayment(ctx, &p, func(a *model.Appointment) error {
			if !actor.IsAdmin() && !actor.Owns(a.ClientID) {
				return apperr.Forbidden("appointment %d belongs to another client", a.ID)
			}
			p.ClientID = a.ClientID
			if actor.IsAdmin() && req.ClientID != 0 {
				p.ClientID = req.ClientID
			}
			if p.Status == model.PaymentApproved {
				advanced = Advance(a)
			}
			return nil
		})
		return p, err
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return model.Payment{}, apperr.Validation("appointment %d does not exist", req.AppointmentID)
	case errors.Is(err, storage.ErrInvalidReference):
		return model.Payment{}, apperr.Validation("client %d does not exist", req.ClientID)
	case err != nil:
		return model.Payment{}, err
	}

	r.logger.Info("payment registered",
		"payment_id", p.ID,
		"appointment_id", p.AppointmentID,
		"method", p.Method,
		"status", p.Status,
		"appointment_completed", advanced,
	)
	return p, nil
}

// Approve moves a pending payment to aprobado and completes its appointment
// when that is still pending or confirmed.
func (r *Reconciler) Approve(ctx context.Context, actor model.Actor, id int64) (model.Payment, error) {
	if !actor.IsAdmin() {
		return model.Payment{}, apperr.Forbidden("only admins can approve payments")
	}
	var advanced bool
	p, err := r.decide(ctx, "approve payment", id, func(p *model.Payment, a *model.Appointment) {
		p.Status = model.PaymentApproved
		p.ApproverID = actor.UserID
		advanced = Advance(a)
	})
	if err != nil {
		return model.Payment{}, err
	}
	r.logger.Info("payment approved", "payment_id", id, "appointment_id", p.AppointmentID, "appointment_completed", advanced)
	return p, nil
}

// Reject moves a pending payment to rechazado. The appointment is not touched.
func (r *Reconciler) Reject(ctx context.Context, actor model.Actor, id int64, reason string) (model.Payment, error) {
	if !actor.IsAdmin() {
		return model.Payment{}, apperr.Forbidden("only admins can reject payments")
	}
	p, err := r.decide(ctx, "reject payment", id, func(p *model.Payment, _ *model.Appointment) {
		p.Status = model.PaymentRejected
		p.ApproverID = actor.UserID
		p.RejectReason = reason
	})
	if err != nil {
		return model.Payment{}, err
	}
	r.logger.Info("payment rejected", "payment_id", id, "appointment_id", p.AppointmentID)
	return p, nil
}

func (r *Reconciler) decide(ctx context.Context, op string, id int64, apply func(*model.Payment, *model.Appointment)) (model.Payment, error) {
	p, err := storecall.Write(ctx, r.policy, op, func(ctx context.Context) (model.Payment, error) {
		return r.store.UpdatePayment(ctx, id, func(p *model.Payment, a *model.Appointment) error {
			if p.Status != model.PaymentPending {
				return apperr.State("payment %d is %s; only pendiente payments can change", id, p.Status)
			}
			apply(p, a)
			return nil
		})
	})
	if errors.Is(err, storage.ErrNotFound) {
		return model.Payment{}, apperr.NotFound("payment %d not found", id)
	}
	return p, err
}

// CompleteAndCollect marks an appointment completada and records an approved
// cash payment in one store transaction. A zero amount charges the service price.
func (r *Reconciler) CompleteAndCollect(ctx context.Context, actor model.Actor, appointmentID int64, amount model.Money) (model.Payment, model.Appointment, error) {
	if !actor.IsAdmin() {
		return model.Payment{}, model.Appointment{}, apperr.Forbidden("only admins can collect payments")
	}
	if amount < 0 {
		return model.Payment{}, model.Appointment{}, apperr.Validation("monto must be greater than zero")
	}
	if amount == 0 {
		a, err := storecall.Read(ctx, r.policy, "get appointment", func(ctx context.Context) (model.Appointment, error) {
			return r.store.GetAppointment(ctx, appointmentID)
		})
		if errors.Is(err, storage.ErrNotFound) {
			return model.Payment{}, model.Appointment{}, apperr.NotFound("appointment %d not found", appointmentID)
		}
		if err != nil {
			return model.Payment{}, model.Appointment{}, err
		}
		if a.Price <= 0 {
			return model.Payment{}, model.Appointment{}, apperr.Validation("monto is required: service has no price")
		}
		amount = a.Price
	}

	p := model.Payment{
		AppointmentID: appointmentID,
		Amount:        amount,
		Method:        model.MethodCash,
		Status:        model.PaymentApproved,
		PaidOn:        model.DayOf(r.now()),
		ApproverID:    actor.UserID,
		Notes:         "cobro en efectivo",
	}
	var appt model.Appointment
	p, err := storecall.Write(ctx, r.policy, "complete and collect", func(ctx context.Context) (model.Payment, error) {
		err := r.store.RecordPayment(ctx, &p, func(a *model.Appointment) error {
			if a.Status == model.StatusCancelled {
				return apperr.State("appointment %d is cancelada and cannot be collected", a.ID)
			}
			a.Status = model.StatusCompleted
			p.ClientID = a.ClientID
			appt = *a
			return nil
		})
		return p, err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return model.Payment{}, model.Appointment{}, apperr.NotFound("appointment %d not found", appointmentID)
	}
	if err != nil {
		return model.Payment{}, model.Appointment{}, err
	}
	r.logger.Info("appointment completed and collected", "appointment_id", appointmentID, "payment_id", p.ID, "amount", p.Amount.String())
	return p, appt, nil
}

func (r *Reconciler) Get(ctx context.Context, actor model.Actor, id int64) (model.Payment, error) {
	p, err := storecall.Read(ctx, r.policy, "get payment", func(ctx context.Context) (model.Payment, error) {
		return r.store.GetPayment(ctx, id)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return model.Payment{}, apperr.NotFound("payment %d not found", id)
	}
	if err != nil {
		return model.Payment{}, err
	}
	if !actor.IsAdmin() && !actor.Owns(p.ClientID) {
		return model.Payment{}, apperr.Forbidden("payment %d belongs to another client", id)
	}
	return p, nil
}

// List returns payments matching filter; clients only ever see their own.
func (r *Reconciler) List(ctx context.Context, actor model.Actor, filter model.PaymentFilter) ([]model.Payment, error) {
	if !actor.IsAdmin() {
		filter.ClientID = actor.UserID
	}
	return storecall.Read(ctx, r.policy, "list payments", func(ctx context.Context) ([]model.Payment, error) {
		return r.store.ListPayments(ctx, filter)
	})
}

func (r *Reconciler) ForAppointment(ctx context.Context, actor model.Actor, appointmentID int64) ([]model.Payment, error) {
	a, err := storecall.Read(ctx, r.policy, "get appointment", func(ctx context.Context) (model.Appointment, error) {
		return r.store.GetAppointment(ctx, appointmentID)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("appointment %d not found", appointmentID)
	}
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Owns(a.ClientID) {
		return nil, apperr.Forbidden("appointment %d belongs to another client", appointmentID)
	}
	return storecall.Read(ctx, r.policy, "list payments", func(ctx context.Context) ([]model.Payment, error) {
		return r.store.ListPayments(ctx, model.PaymentFilter{AppointmentID: appointmentID})
	})
}

// Uncollected lists live appointments that are not settled yet.
func (r *Reconciler) Uncollected(ctx context.Context, actor model.Actor) ([]model.Appointment, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("only admins can list uncollected appointments")
	}
	appts, err := storecall.Read(ctx, r.policy, "list appointments", func(ctx context.Context) ([]model.Appointment, error) {
		return r.store.ListAppointments(ctx, model.AppointmentFilter{Statuses: model.ActiveStatuses()})
	})
	if err != nil {
		return nil, err
	}
	pays, err := storecall.Read(ctx, r.policy, "list payments", func(ctx context.Context) ([]model.Payment, error) {
		return r.store.ListPayments(ctx, model.PaymentFilter{})
	})
	if err != nil {
		return nil, err
	}
	return Unsettled(appts, pays), nil
}
