package stats

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storecall"
)

type Store interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	ListServices(ctx context.Context) ([]model.Service, error)
	ListAppointments(ctx context.Context, filter model.AppointmentFilter) ([]model.Appointment, error)
	ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error)
}

// Aggregator serves global, admin-only figures. Every load is an idempotent
// read and goes through storecall.Read.
type Aggregator struct {
	store  Store
	policy storecall.Policy
}

func NewAggregator(store Store, policy storecall.Policy) *Aggregator {
	return &Aggregator{store: store, policy: policy}
}

func (a *Aggregator) Dashboard(ctx context.Context, actor model.Actor) (Dashboard, error) {
	if !actor.IsAdmin() {
		return Dashboard{}, apperr.Forbidden("only admins can read statistics")
	}
	users, err := storecall.Read(ctx, a.policy, "list users", a.store.ListUsers)
	if err != nil {
		return Dashboard{}, err
	}
	services, err := storecall.Read(ctx, a.policy, "list services", a.store.ListServices)
	if err != nil {
		return Dashboard{}, err
	}
	appts, err := storecall.Read(ctx, a.policy, "list appointments", func(ctx context.Context) ([]model.Appointment, error) {
		return a.store.ListAppointments(ctx, model.AppointmentFilter{})
	})
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(len(users), len(services), appts), nil
}

func (a *Aggregator) Payments(ctx context.Context, actor model.Actor) (PaymentSummary, error) {
	if !actor.IsAdmin() {
		return PaymentSummary{}, apperr.Forbidden("only admins can read statistics")
	}
	pays, err := storecall.Read(ctx, a.policy, "list payments", func(ctx context.Context) ([]model.Payment, error) {
		return a.store.ListPayments(ctx, model.PaymentFilter{})
	})
	if err != nil {
		return PaymentSummary{}, err
	}
	return BuildPayments(pays), nil
}

func (a *Aggregator) Income(ctx context.Context, actor model.Actor, from, to time.Time) (Income, error) {
	if !actor.IsAdmin() {
		return Income{}, apperr.Forbidden("only admins can read statistics")
	}
	if from.IsZero() || to.IsZero() {
		return Income{}, apperr.Validation("fecha_desde and fecha_hasta are required")
	}
	if to.Before(from) {
		return Income{}, apperr.Validation("fecha_hasta must not be before fecha_desde")
	}
	pays, err := storecall.Read(ctx, a.policy, "list payments", func(ctx context.Context) ([]model.Payment, error) {
		return a.store.ListPayments(ctx, model.PaymentFilter{Status: model.PaymentApproved, From: from, To: to})
	})
	if err != nil {
		return Income{}, err
	}
	return BuildIncome(pays, from, to), nil
}
