package booking

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/slots"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storage/memstore"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storecall"
)

type fixture struct {
	store    *memstore.Store
	writer   *Writer
	resolver *availability.Resolver
	admin    model.Actor
	client   model.Actor
	other    model.Actor
	svc      model.Service
	free     model.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	admin := model.User{Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin}
	client := model.User{Name: "Ana", Email: "ana@example.com", Role: model.RoleClient}
	other := model.User{Name: "Luis", Email: "luis@example.com", Role: model.RoleClient}
	for _, u := range []*model.User{&admin, &client, &other} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}
	svc := model.Service{Name: "Corte", Price: model.MoneyFromUnits(25000), DurationMinutes: 30}
	free := model.Service{Name: "Valoracion", Price: 0, DurationMinutes: 15}
	for _, s := range []*model.Service{&svc, &free} {
		if err := store.CreateService(ctx, s); err != nil {
			t.Fatalf("CreateService failed: %v", err)
		}
	}

	grid, err := slots.New(slots.DefaultConfig())
	if err != nil {
		t.Fatalf("slots.New failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := storecall.Policy{Timeout: time.Second}
	rec := payments.NewReconciler(store, policy, logger)

	return &fixture{
		store:    store,
		writer:   NewWriter(store, grid, rec, policy, logger),
		resolver: availability.NewResolver(grid, store, policy),
		admin:    model.Actor{UserID: admin.ID, Role: model.RoleAdmin},
		client:   model.Actor{UserID: client.ID, Role: model.RoleClient},
		other:    model.Actor{UserID: other.ID, Role: model.RoleClient},
		svc:      svc,
		free:     free,
	}
}

func (f *fixture) freeSlots(t *testing.T, date string) []string {
	t.Helper()
	day, err := model.ParseDate(date)
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	free, err := f.resolver.Free(context.Background(), day, 0)
	if err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	return free
}

func TestBookingLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if n := len(f.freeSlots(t, "2025-06-10")); n != 23 {
		t.Fatalf("expected 23 free slots, got %d", n)
	}

	res, err := f.writer.Create(ctx, f.client, CreateRequest{
		ServiceID: f.svc.ID,
		Schedule:  Schedule{DateTime: "2025-06-10 10:00:00"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if res.Appointment.Status != model.StatusPending {
		t.Fatalf("expected pendiente, got %s", res.Appointment.Status)
	}
	free := f.freeSlots(t, "2025-06-10")
	if len(free) != 22 {
		t.Fatalf("expected 22 free slots, got %d", len(free))
	}
	for _, l := range free {
		if l == "10:00" {
			t.Fatal("10:00 must not be free")
		}
	}

	_, err = f.writer.Create(ctx, f.other, CreateRequest{
		ServiceID: f.svc.ID,
		Schedule:  Schedule{Date: "2025-06-10", Time: "10:00"},
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := f.writer.Cancel(ctx, f.client, res.Appointment.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if n := len(f.freeSlots(t, "2025-06-10")); n != 23 {
		t.Fatalf("expected 23 free slots after cancel, got %d", n)
	}

	rebooked, err := f.writer.Create(ctx, f.client, CreateRequest{
		ServiceID:     f.svc.ID,
		Schedule:      Schedule{DateTime: "2025-06-10 10:00:00"},
		PaymentMethod: model.MethodCash,
	})
	if err != nil {
		t.Fatalf("rebook failed: %v", err)
	}
	if rebooked.PaymentErr != nil || rebooked.Payment == nil {
		t.Fatalf("expected payment, got err=%v", rebooked.PaymentErr)
	}
	if rebooked.Payment.Status != model.PaymentApproved || rebooked.Payment.Amount != model.MoneyFromUnits(25000) {
		t.Fatalf("unexpected payment %+v", rebooked.Payment)
	}
	if rebooked.Appointment.Status != model.StatusCompleted {
		t.Fatalf("expected completada after cash payment, got %s", rebooked.Appointment.Status)
	}
}

func TestConcurrentCreateOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	actors := []model.Actor{f.client, f.other}
	errs := make([]error, len(actors))
	var wg sync.WaitGroup
	for i, actor := range actors {
		wg.Add(1)
		go func(i int, actor model.Actor) {
			defer wg.Done()
			_, errs[i] = f.writer.Create(ctx, actor, CreateRequest{
				ServiceID: f.svc.ID,
				Schedule:  Schedule{DateTime: "2025-06-11 15:30"},
			})
		}(i, actor)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("expected one win and one conflict, got %d/%d", wins, conflicts)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateRequest
		kind apperr.Kind
	}{
		{"missing schedule", CreateRequest{ServiceID: f.svc.ID}, apperr.KindValidation},
		{"date without time", CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{Date: "2025-06-10"}}, apperr.KindValidation},
		{"malformed", CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "10/06/2025 10:00"}}, apperr.KindValidation},
		{"off grid", CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2025-06-10 10:15:00"}}, apperr.KindValidation},
		{"after closing", CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2025-06-10 19:30:00"}}, apperr.KindValidation},
		{"missing service", CreateRequest{Schedule: Schedule{DateTime: "2025-06-10 10:00:00"}}, apperr.KindValidation},
		{"unknown service", CreateRequest{ServiceID: 999, Schedule: Schedule{DateTime: "2025-06-10 10:00:00"}}, apperr.KindValidation},
		{"bad method", CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2025-06-10 10:00:00"}, PaymentMethod: "bitcoin"}, apperr.KindValidation},
		{"client picks status", CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2025-06-10 10:00:00"}, Status: model.StatusConfirmed}, apperr.KindForbidden},
	}
	for _, tc := range cases {
		if _, err := f.writer.Create(ctx, f.client, tc.req); !apperr.Is(err, tc.kind) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.kind, err)
		}
	}

	if _, err := f.writer.Create(ctx, f.admin, CreateRequest{
		ServiceID: f.svc.ID,
		Schedule:  Schedule{DateTime: "2025-06-10 10:00:00"},
		Status:    model.StatusCancelled,
	}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("booking straight into cancelada must fail, got %v", err)
	}
}

func TestAdminBooksForClient(t *testing.T) {
	f := newFixture(t)
	res, err := f.writer.Create(context.Background(), f.admin, CreateRequest{
		ClientID:  f.client.UserID,
		ServiceID: f.svc.ID,
		Schedule:  Schedule{DateTime: "2025-06-12 08:00:00"},
		Status:    model.StatusConfirmed,
		Notes:     "  cliente frecuente ",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	a := res.Appointment
	if a.ClientID != f.client.UserID || a.Status != model.StatusConfirmed || a.Notes != "cliente frecuente" {
		t.Fatalf("unexpected appointment %+v", a)
	}

	if _, err := f.writer.Create(context.Background(), f.admin, CreateRequest{
		ClientID:  424242,
		ServiceID: f.svc.ID,
		Schedule:  Schedule{DateTime: "2025-06-12 08:30:00"},
	}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown client must be a validation error, got %v", err)
	}
}

func TestPaymentIntentFailureKeepsBooking(t *testing.T) {
	f := newFixture(t)
	res, err := f.writer.Create(context.Background(), f.client, CreateRequest{
		ServiceID:     f.free.ID,
		Schedule:      Schedule{DateTime: "2025-06-10 16:00:00"},
		PaymentMethod: model.MethodCard,
	})
	if err != nil {
		t.Fatalf("booking must succeed even if payment fails: %v", err)
	}
	if res.PaymentErr == nil || res.Payment != nil {
		t.Fatal("expected payment error for zero priced service")
	}
	if _, err := f.writer.Get(context.Background(), f.client, res.Appointment.ID); err != nil {
		t.Fatalf("appointment must be stored: %v", err)
	}
}

func TestUpdateReschedules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, _ := f.writer.Create(ctx, f.client, CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2025-06-10 09:00:00"}})
	b, _ := f.writer.Create(ctx, f.other, CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2025-06-10 09:30:00"}})

	if _, err := f.writer.Update(ctx, f.client, a.Appointment.ID, UpdateRequest{Schedule: Schedule{DateTime: "2025-06-10 09:30:00"}}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	got, _ := f.writer.Get(ctx, f.client, a.Appointment.ID)
	if model.SlotLabel(got.ScheduledAt) != "09:00" {
		t.Fatalf("original must be unchanged, got %s", got.ScheduledAt)
	}

	notes := "traer foto de referencia"
	moved, err := f.writer.Update(ctx, f.client, a.Appointment.ID, UpdateRequest{
		Schedule: Schedule{Date: "2025-06-10", Time: "09:00"},
		Notes:    &notes,
	})
	if err != nil {
		t.Fatalf("same-slot update must succeed: %v", err)
	}
	if moved.Notes != notes {
		t.Fatalf("notes not saved: %+v", moved)
	}

	if _, err := f.writer.Update(ctx, f.client, b.Appointment.ID, UpdateRequest{Notes: &notes}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("editing someone else's booking must be forbidden, got %v", err)
	}
	confirmed := model.StatusConfirmed
	if _, err := f.writer.Update(ctx, f.client, a.Appointment.ID, UpdateRequest{Status: &confirmed}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("clients cannot confirm, got %v", err)
	}
	if _, err := f.writer.Update(ctx, f.admin, 999, UpdateRequest{Notes: &notes}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	free := f.freeSlots(t, "2025-06-10")
	for _, l := range free {
		if l == "09:00" || l == "09:30" {
			t.Fatalf("slot %s should be occupied", l)
		}
	}
}

func TestClientRescheduleResendsCurrentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, _ := f.writer.Create(ctx, f.client, CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2030-06-10 10:00:00"}})
	pending := model.StatusPending
	moved, err := f.writer.Update(ctx, f.client, res.Appointment.ID, UpdateRequest{
		Schedule: Schedule{DateTime: "2030-06-10 11:00:00"},
		Status:   &pending,
	})
	if err != nil {
		t.Fatalf("reschedule with unchanged estado failed: %v", err)
	}
	if model.SlotLabel(moved.ScheduledAt) != "11:00" || moved.Status != model.StatusPending {
		t.Fatalf("unexpected appointment after reschedule: %+v", moved)
	}

	free := f.freeSlots(t, "2030-06-10")
	var tenFree bool
	for _, l := range free {
		if l == "11:00" {
			t.Fatalf("11:00 should be occupied")
		}
		if l == "10:00" {
			tenFree = true
		}
	}
	if !tenFree {
		t.Fatalf("10:00 should be released, free=%v", free)
	}

	confirmed := model.StatusConfirmed
	if _, err := f.writer.Update(ctx, f.client, res.Appointment.ID, UpdateRequest{Status: &confirmed}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("clients cannot confirm, got %v", err)
	}
	cancelled := model.StatusCancelled
	if got, err := f.writer.Update(ctx, f.client, res.Appointment.ID, UpdateRequest{Status: &cancelled}); err != nil || got.Status != model.StatusCancelled {
		t.Fatalf("client cancel through update failed: %+v (err=%v)", got, err)
	}
}

func TestUpdateReassignsClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, _ := f.writer.Create(ctx, f.client, CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2030-06-11 15:00:00"}})
	id := res.Appointment.ID

	own := f.client.UserID
	if _, err := f.writer.Update(ctx, f.client, id, UpdateRequest{ClientID: &own}); err != nil {
		t.Fatalf("resending the owner must be allowed: %v", err)
	}
	target := f.other.UserID
	if _, err := f.writer.Update(ctx, f.client, id, UpdateRequest{ClientID: &target}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("clients cannot reassign, got %v", err)
	}

	unknown := int64(9999)
	if _, err := f.writer.Update(ctx, f.admin, id, UpdateRequest{ClientID: &unknown}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unknown client, got %v", err)
	}

	moved, err := f.writer.Update(ctx, f.admin, id, UpdateRequest{ClientID: &target})
	if err != nil {
		t.Fatalf("admin reassign failed: %v", err)
	}
	if moved.ClientID != target || moved.ClientName != "Luis" {
		t.Fatalf("appointment not reassigned: %+v", moved)
	}
	theirs, err := f.writer.List(ctx, f.other, model.AppointmentFilter{})
	if err != nil || len(theirs) != 1 || theirs[0].ID != id {
		t.Fatalf("new owner should see the appointment, got %+v (err=%v)", theirs, err)
	}
	if _, err := f.writer.Get(ctx, f.client, id); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("previous owner should lose access, got %v", err)
	}
}

func TestClientCancelRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, _ := f.writer.Create(ctx, f.client, CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2025-06-13 17:00:00"}})
	id := res.Appointment.ID

	if _, err := f.writer.Cancel(ctx, f.other, id); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.writer.SetStatus(ctx, f.admin, id, model.StatusCompleted); err != nil {
		t.Fatalf("admin complete failed: %v", err)
	}
	if _, err := f.writer.Cancel(ctx, f.client, id); !apperr.Is(err, apperr.KindState) {
		t.Fatalf("completed appointments cannot be cancelled by the client, got %v", err)
	}
	if _, err := f.writer.SetStatus(ctx, f.admin, id, "archivada"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plain, _ := f.writer.Create(ctx, f.client, CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2025-06-14 08:00:00"}})
	paid, _ := f.writer.Create(ctx, f.client, CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2025-06-14 08:30:00"}, PaymentMethod: model.MethodCash})

	if err := f.writer.Delete(ctx, f.client, plain.Appointment.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("clients cannot delete, got %v", err)
	}
	if err := f.writer.Delete(ctx, f.admin, paid.Appointment.ID); !apperr.Is(err, apperr.KindDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if err := f.writer.Delete(ctx, f.admin, plain.Appointment.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := f.writer.Delete(ctx, f.admin, plain.Appointment.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListScopesClients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _ = f.writer.Create(ctx, f.client, CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2025-06-15 10:00:00"}})
	_, _ = f.writer.Create(ctx, f.other, CreateRequest{ServiceID: f.svc.ID, Schedule: Schedule{DateTime: "2025-06-15 10:30:00"}})

	mine, err := f.writer.List(ctx, f.client, model.AppointmentFilter{})
	if err != nil || len(mine) != 1 {
		t.Fatalf("expected 1 appointment, got %d (err=%v)", len(mine), err)
	}
	all, _ := f.writer.List(ctx, f.admin, model.AppointmentFilter{})
	if len(all) != 2 {
		t.Fatalf("admin should see 2, got %d", len(all))
	}
	if _, err := f.writer.Get(ctx, f.client, all[1].ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
