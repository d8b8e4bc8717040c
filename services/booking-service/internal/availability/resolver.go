package availability

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/slots"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storecall"
)

type Store interface {
	ListAppointments(ctx context.Context, filter model.AppointmentFilter) ([]model.Appointment, error)
}

// Resolver answers "which slots are free on this date". The answer is a
// snapshot; only the booking write decides whether a slot can be taken.
type Resolver struct {
	grid   *slots.Grid
	store  Store
	policy storecall.Policy
}

func NewResolver(grid *slots.Grid, store Store, policy storecall.Policy) *Resolver {
	return &Resolver{grid: grid, store: store, policy: policy}
}

// Free returns the grid labels for day not held by an active appointment.
// excludeID, when non-zero, ignores that appointment so it can be rescheduled.
func (r *Resolver) Free(ctx context.Context, day time.Time, excludeID int64) ([]string, error) {
	taken, err := storecall.Read(ctx, r.policy, "list appointments for availability", func(ctx context.Context) ([]model.Appointment, error) {
		return r.store.ListAppointments(ctx, model.AppointmentFilter{
			Day:       model.DayOf(day),
			ExcludeID: excludeID,
			Statuses:  model.ActiveStatuses(),
		})
	})
	if err != nil {
		return nil, err
	}
	occupied := make([]time.Time, 0, len(taken))
	for _, a := range taken {
		occupied = append(occupied, a.ScheduledAt)
	}
	return Subtract(r.grid.Labels(), occupied), nil
}

// Subtract removes the time-of-day of every occupied instant from grid,
// preserving grid order.
func Subtract(grid []string, occupied []time.Time) []string {
	busy := make(map[string]struct{}, len(occupied))
	for _, t := range occupied {
		busy[model.SlotLabel(t)] = struct{}{}
	}
	free := make([]string, 0, len(grid))
	for _, l := range grid {
		if _, ok := busy[l]; !ok {
			free = append(free, l)
		}
	}
	return free
}
