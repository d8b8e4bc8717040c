package model

import "time"

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "efectivo"
	MethodCard     PaymentMethod = "tarjeta"
	MethodTransfer PaymentMethod = "transferencia"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pendiente"
	PaymentApproved PaymentStatus = "aprobado"
	PaymentRejected PaymentStatus = "rechazado"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentApproved, PaymentRejected:
		return true
	}
	return false
}

// Payment records money collected, or claimed, against an appointment.
// Receipt is an opaque reference (URL, data URI or file key).
type Payment struct {
	ID            int64
	AppointmentID int64
	ClientID      int64
	Amount        Money
	Method        PaymentMethod
	Status        PaymentStatus
	Receipt       string
	PaidOn        time.Time
	Notes         string
	RejectReason  string
	ApproverID    int64
	CreatedAt     time.Time
	UpdatedAt     time.Time

	ClientName string
}

// Settles reports whether this payment alone settles its appointment.
func (p Payment) Settles() bool {
	return p.Status == PaymentApproved || p.Method == MethodCash
}

type PaymentFilter struct {
	ClientID      int64
	AppointmentID int64
	Status        PaymentStatus
	Method        PaymentMethod
	From          time.Time
	To            time.Time
}

func (f PaymentFilter) Match(p Payment) bool {
	if f.ClientID != 0 && p.ClientID != f.ClientID {
		return false
	}
	if f.AppointmentID != 0 && p.AppointmentID != f.AppointmentID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Method != "" && p.Method != f.Method {
		return false
	}
	if !f.From.IsZero() && DayOf(p.PaidOn).Before(DayOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && DayOf(p.PaidOn).After(DayOf(f.To)) {
		return false
	}
	return true
}
