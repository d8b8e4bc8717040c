// Package memstore is a process-local store with the same contracts as the
// Postgres repositories. A single mutex makes every check-and-write atomic.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int64

	users        map[int64]model.User
	services     map[int64]model.Service
	appointments map[int64]model.Appointment
	payments     map[int64]model.Payment
}

func New() *Store {
	return &Store{
		now:          func() time.Time { return model.WallClock(time.Now()) },
		users:        map[int64]model.User{},
		services:     map[int64]model.Service{},
		appointments: map[int64]model.Appointment{},
		payments:     map[int64]model.Payment{},
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Users

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(u.Email, 0) {
		return storage.ErrDuplicate
	}
	u.ID = s.id()
	u.CreatedAt = s.now()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, storage.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, id int64, fn func(*model.User) error) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, storage.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return model.User{}, err
	}
	if s.emailTaken(u.Email, id) {
		return model.User{}, storage.ErrDuplicate
	}
	u.ID = id
	s.users[id] = u
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	for _, a := range s.appointments {
		if a.ClientID == id {
			return storage.ErrReferenced
		}
	}
	for _, p := range s.payments {
		if p.ClientID == id {
			return storage.ErrReferenced
		}
	}
	delete(s.users, id)
	return nil
}

func (s *Store) emailTaken(email string, except int64) bool {
	for _, u := range s.users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// Services

func (s *Store) CreateService(_ context.Context, svc *model.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc.ID = s.id()
	svc.CreatedAt = s.now()
	s.services[svc.ID] = *svc
	return nil
}

func (s *Store) GetService(_ context.Context, id int64) (model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[id]
	if !ok {
		return model.Service{}, storage.ErrNotFound
	}
	return svc, nil
}

func (s *Store) ListServices(_ context.Context) ([]model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Service, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateService(_ context.Context, id int64, fn func(*model.Service) error) (model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[id]
	if !ok {
		return model.Service{}, storage.ErrNotFound
	}
	if err := fn(&svc); err != nil {
		return model.Service{}, err
	}
	svc.ID = id
	s.services[id] = svc
	return svc, nil
}

func (s *Store) DeleteService(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[id]; !ok {
		return storage.ErrNotFound
	}
	for _, a := range s.appointments {
		if a.ServiceID == id {
			return storage.ErrReferenced
		}
	}
	delete(s.services, id)
	return nil
}

// Appointments

func (s *Store) CreateAppointment(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAppointment(*a, 0); err != nil {
		return err
	}
	a.ID = s.id()
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	s.appointments[a.ID] = *a
	*a = s.joinAppointment(*a)
	return nil
}

func (s *Store) GetAppointment(_ context.Context, id int64) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	return s.joinAppointment(a), nil
}

func (s *Store) ListAppointments(_ context.Context, filter model.AppointmentFilter) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Appointment, 0)
	for _, a := range s.appointments {
		if filter.Match(a) {
			out = append(out, s.joinAppointment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateAppointment(_ context.Context, id int64, fn func(*model.Appointment) error) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	a = s.joinAppointment(a)
	if err := fn(&a); err != nil {
		return model.Appointment{}, err
	}
	a.ID = id
	if err := s.checkAppointment(a, id); err != nil {
		return model.Appointment{}, err
	}
	a.UpdatedAt = s.now()
	s.appointments[id] = a
	return s.joinAppointment(a), nil
}

func (s *Store) DeleteAppointment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appointments[id]; !ok {
		return storage.ErrNotFound
	}
	for _, p := range s.payments {
		if p.AppointmentID == id {
			return storage.ErrReferenced
		}
	}
	delete(s.appointments, id)
	return nil
}

// checkAppointment enforces the foreign keys and the one-active-booking-per-instant rule.
func (s *Store) checkAppointment(a model.Appointment, self int64) error {
	if _, ok := s.users[a.ClientID]; !ok {
		return storage.ErrInvalidReference
	}
	if _, ok := s.services[a.ServiceID]; !ok {
		return storage.ErrInvalidReference
	}
	if !a.Status.Active() {
		return nil
	}
	for id, other := range s.appointments {
		if id != self && other.Status.Active() && other.ScheduledAt.Equal(a.ScheduledAt) {
			return storage.ErrSlotTaken
		}
	}
	return nil
}

func (s *Store) joinAppointment(a model.Appointment) model.Appointment {
	a.ClientName = s.users[a.ClientID].Name
	svc := s.services[a.ServiceID]
	a.ServiceName = svc.Name
	a.Price = svc.Price
	return a
}

// Payments

func (s *Store) RecordPayment(_ context.Context, p *model.Payment, fn func(*model.Appointment) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[p.AppointmentID]
	if !ok {
		return storage.ErrNotFound
	}
	a = s.joinAppointment(a)
	if fn != nil {
		if err := fn(&a); err != nil {
			return err
		}
	}
	if _, ok := s.users[p.ClientID]; !ok {
		return storage.ErrInvalidReference
	}
	if err := s.checkAppointment(a, a.ID); err != nil {
		return err
	}

	now := s.now()
	if stored := s.appointments[a.ID]; stored.Status != a.Status {
		a.UpdatedAt = now
	}
	s.appointments[a.ID] = a

	p.ID = s.id()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.payments[p.ID] = *p
	*p = s.joinPayment(*p)
	return nil
}

func (s *Store) GetPayment(_ context.Context, id int64) (model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return model.Payment{}, storage.ErrNotFound
	}
	return s.joinPayment(p), nil
}

func (s *Store) ListPayments(_ context.Context, filter model.PaymentFilter) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Payment, 0)
	for _, p := range s.payments {
		if filter.Match(p) {
			out = append(out, s.joinPayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdatePayment(_ context.Context, id int64, fn func(*model.Payment, *model.Appointment) error) (model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return model.Payment{}, storage.ErrNotFound
	}
	a, ok := s.appointments[p.AppointmentID]
	if !ok {
		return model.Payment{}, storage.ErrNotFound
	}
	a = s.joinAppointment(a)
	before := a.Status
	if err := fn(&p, &a); err != nil {
		return model.Payment{}, err
	}
	p.ID = id
	if err := s.checkAppointment(a, a.ID); err != nil {
		return model.Payment{}, err
	}

	now := s.now()
	if a.Status != before {
		a.UpdatedAt = now
	}
	p.UpdatedAt = now
	s.appointments[a.ID] = a
	s.payments[id] = p
	return s.joinPayment(p), nil
}

func (s *Store) joinPayment(p model.Payment) model.Payment {
	p.ClientName = s.users[p.ClientID].Name
	return p
}
