package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/outbox"
)

func TestAppointmentWhere(t *testing.T) {
	if got := appointmentWhere(model.AppointmentFilter{}).String(); got != "" {
		t.Fatalf("expected empty clause, got %q", got)
	}

	day := time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)
	w := appointmentWhere(model.AppointmentFilter{
		ClientID:  3,
		Day:       day,
		ExcludeID: 9,
		Statuses:  model.ActiveStatuses(),
	})
	want := " WHERE c.id_usuario = $1 AND c.fecha_hora >= $2 AND c.fecha_hora < $3 AND c.id <> $4 AND c.estado = ANY($5)"
	if w.String() != want {
		t.Fatalf("unexpected clause:\n got %q\nwant %q", w.String(), want)
	}
	if len(w.args) != 5 {
		t.Fatalf("expected 5 args, got %d", len(w.args))
	}
	from, to := w.args[1].(time.Time), w.args[2].(time.Time)
	if !from.Equal(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day bounds %s..%s", from, to)
	}
	statuses := w.args[4].([]string)
	for _, s := range statuses {
		if s == string(model.StatusCancelled) {
			t.Fatal("active statuses must not include cancelada")
		}
	}
}

func TestPaymentWhere(t *testing.T) {
	w := paymentWhere(model.PaymentFilter{
		Status: model.PaymentApproved,
		Method: model.MethodCash,
		From:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	want := " WHERE p.estado = $1 AND p.metodo = $2 AND p.fecha_pago >= $3 AND p.fecha_pago <= $4"
	if w.String() != want {
		t.Fatalf("unexpected clause:\n got %q\nwant %q", w.String(), want)
	}
	if w.args[0] != "aprobado" || w.args[1] != "efectivo" {
		t.Fatalf("unexpected args %#v", w.args)
	}
}

func TestNullableID(t *testing.T) {
	if nullableID(0) != nil {
		t.Fatal("zero id must be NULL")
	}
	if nullableID(5) != int64(5) {
		t.Fatal("non-zero id must pass through")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	if len(migrations) == 0 || migrations[0].Version != "0001_init" {
		t.Fatalf("unexpected migrations %+v", migrations)
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].Version >= migrations[i].Version {
			t.Fatal("migrations must be ordered")
		}
	}
	schema := migrations[0].SQL
	for _, needle := range []string{"CREATE UNIQUE INDEX IF NOT EXISTS " + activeSlotIndex, "WHERE estado <> 'cancelada'", "outbox_events"} {
		if !strings.Contains(schema, needle) {
			t.Fatalf("schema is missing %q", needle)
		}
	}
}

func TestEmitWithoutOutbox(t *testing.T) {
	s := NewStore(nil, nil)
	if err := s.emit(context.Background(), nil, outbox.AggregateAppointment, 1, outbox.AppointmentCreated, map[string]int{"id": 1}); err != nil {
		t.Fatalf("emit without an outbox should be a no-op, got %v", err)
	}
}
