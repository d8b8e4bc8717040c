package payments

import "github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"

// Advance completes an appointment that is pending or confirmed. Completed
// and cancelled appointments are left alone. It reports whether a changed.
func Advance(a *model.Appointment) bool {
	if a.Status == model.StatusPending || a.Status == model.StatusConfirmed {
		a.Status = model.StatusCompleted
		return true
	}
	return false
}

// Settled reports whether any payment settles the appointment.
func Settled(pays []model.Payment) bool {
	for _, p := range pays {
		if p.Settles() {
			return true
		}
	}
	return false
}

// Unsettled filters appts down to the live ones without a settling payment,
// keeping their order.
func Unsettled(appts []model.Appointment, pays []model.Payment) []model.Appointment {
	settled := map[int64]bool{}
	for _, p := range pays {
		if p.Settles() {
			settled[p.AppointmentID] = true
		}
	}
	out := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.Status.Active() && !settled[a.ID] {
			out = append(out, a)
		}
	}
	return out
}
