package outbox

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Event is the domain event envelope written to the outbox table in the
// same transaction as the change it describes. The Kafka topic equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateAppointment = "appointment"
	AggregatePayment     = "payment"

	AppointmentCreated = "booking.appointment.created.v1"
	AppointmentUpdated = "booking.appointment.updated.v1"
	AppointmentDeleted = "booking.appointment.deleted.v1"
	PaymentRegistered  = "booking.payment.registered.v1"
)

// PaymentDecided names the event for a payment moving to status.
func PaymentDecided(status string) string {
	return "booking.payment." + status + ".v1"
}

// NewEvent marshals payload as the event body.
func NewEvent(aggregateType string, aggregateID int64, eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   strconv.FormatInt(aggregateID, 10),
		EventType:     eventType,
		Payload:       raw,
	}, nil
}
