package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/md-rashed-zaman/barberia/libs/kafkax"
)

func TestNewEvent(t *testing.T) {
	evt, err := NewEvent(AggregateAppointment, 42, AppointmentCreated, map[string]any{"estado": "pendiente"})
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	if evt.AggregateID != "42" || evt.EventType != AppointmentCreated {
		t.Fatalf("unexpected event %+v", evt)
	}
	var body map[string]string
	if err := json.Unmarshal(evt.Payload, &body); err != nil || body["estado"] != "pendiente" {
		t.Fatalf("unexpected payload %s (err=%v)", evt.Payload, err)
	}

	if _, err := NewEvent(AggregatePayment, 1, PaymentRegistered, make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestPaymentDecided(t *testing.T) {
	if got := PaymentDecided("aprobado"); got != "booking.payment.aprobado.v1" {
		t.Fatalf("unexpected event type %q", got)
	}
}

func TestMessageCarriesMetadataAndTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	msg := Message(context.Background(), Record{
		ID:          7,
		EventID:     "evt-7",
		AggregateID: "42",
		EventType:   AppointmentUpdated,
		Payload:     []byte(`{}`),
		Traceparent: traceparent,
	})
	if msg.Topic != AppointmentUpdated || string(msg.Key) != "42" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID) != "evt-7" {
		t.Fatal("missing event id header")
	}
	if kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventType) != AppointmentUpdated {
		t.Fatal("missing event type header")
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); !strings.Contains(got, "4bf92f3577b34da6a3ce929d0e0e4736") {
		t.Fatalf("trace context not propagated: %q", got)
	}
}
