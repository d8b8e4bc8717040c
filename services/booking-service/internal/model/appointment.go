package model

import "time"

// AppointmentStatus values are the wire values stored in the citas table.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pendiente"
	StatusConfirmed AppointmentStatus = "confirmada"
	StatusCompleted AppointmentStatus = "completada"
	StatusCancelled AppointmentStatus = "cancelada"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether the appointment still holds its slot.
func (s AppointmentStatus) Active() bool {
	return s != StatusCancelled
}

// Appointment is a booked visit. ScheduledAt is a local wall-clock instant
// carried in the UTC location with minute precision.
type Appointment struct {
	ID          int64
	ClientID    int64
	ServiceID   int64
	ScheduledAt time.Time
	Status      AppointmentStatus
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Joined read-only fields; empty when the store could not resolve them.
	ClientName  string
	ServiceName string
	Price       Money
}

// AppointmentFilter narrows appointment listings. Zero values mean "any".
type AppointmentFilter struct {
	ClientID  int64
	Day       time.Time
	ExcludeID int64
	Statuses  []AppointmentStatus
}

func (f AppointmentFilter) Match(a Appointment) bool {
	if f.ClientID != 0 && a.ClientID != f.ClientID {
		return false
	}
	if f.ExcludeID != 0 && a.ID == f.ExcludeID {
		return false
	}
	if !f.Day.IsZero() && !SameDay(a.ScheduledAt, f.Day) {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if a.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

// ActiveStatuses lists every status that occupies a slot.
func ActiveStatuses() []AppointmentStatus {
	return []AppointmentStatus{StatusPending, StatusConfirmed, StatusCompleted}
}
