package payments

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storage/memstore"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storecall"
)

type fixture struct {
	store  *memstore.Store
	rec    *Reconciler
	admin  model.Actor
	client model.Actor
	other  model.Actor
	svc    model.Service
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
	if err := store.CreateService(ctx, &svc); err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		store:  store,
		rec:    NewReconciler(store, storecall.Policy{Timeout: time.Second}, logger),
		admin:  model.Actor{UserID: admin.ID, Role: model.RoleAdmin},
		client: model.Actor{UserID: client.ID, Role: model.RoleClient},
		other:  model.Actor{UserID: other.ID, Role: model.RoleClient},
		svc:    svc,
	}
}

func (f *fixture) book(t *testing.T, hour int, status model.AppointmentStatus) model.Appointment {
	t.Helper()
	a := model.Appointment{
		ClientID:    f.client.UserID,
		ServiceID:   f.svc.ID,
		ScheduledAt: time.Date(2025, 6, 10, hour, 0, 0, 0, time.UTC),
		Status:      status,
	}
	if err := f.store.CreateAppointment(context.Background(), &a); err != nil {
		t.Fatalf("CreateAppointment failed: %v", err)
	}
	return a
}

func (f *fixture) status(t *testing.T, id int64) model.AppointmentStatus {
	t.Helper()
	a, err := f.store.GetAppointment(context.Background(), id)
	if err != nil {
		t.Fatalf("GetAppointment failed: %v", err)
	}
	return a.Status
}

func TestRegisterCashIsApprovedAndCompletes(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, 10, model.StatusPending)

	p, err := f.rec.Register(context.Background(), f.client, RegisterRequest{
		AppointmentID: a.ID,
		Amount:        model.MoneyFromUnits(25000),
		Method:        model.MethodCash,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if p.Status != model.PaymentApproved || p.ClientID != f.client.UserID {
		t.Fatalf("unexpected payment %+v", p)
	}
	if p.PaidOn.IsZero() {
		t.Fatal("payment date must default to today")
	}
	if got := f.status(t, a.ID); got != model.StatusCompleted {
		t.Fatalf("expected completada, got %s", got)
	}
}

func TestRegisterCardAndTransferStayPending(t *testing.T) {
	f := newFixture(t)
	for i, method := range []model.PaymentMethod{model.MethodCard, model.MethodTransfer} {
		a := f.book(t, 11+i, model.StatusConfirmed)
		p, err := f.rec.Register(context.Background(), f.client, RegisterRequest{
			AppointmentID: a.ID,
			Amount:        model.MoneyFromUnits(100),
			Method:        method,
			Receipt:       "data:image/png;base64,AAAA",
		})
		if err != nil {
			t.Fatalf("Register(%s) failed: %v", method, err)
		}
		if p.Status != model.PaymentPending {
			t.Fatalf("%s payment must start pendiente, got %s", method, p.Status)
		}
		if got := f.status(t, a.ID); got != model.StatusConfirmed {
			t.Fatalf("appointment must not move on a pending payment, got %s", got)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, 12, model.StatusPending)
	ctx := context.Background()

	cases := []RegisterRequest{
		{AppointmentID: a.ID, Amount: 0, Method: model.MethodCash},
		{AppointmentID: a.ID, Amount: -5, Method: model.MethodCash},
		{AppointmentID: a.ID, Amount: 100, Method: "cheque"},
		{AppointmentID: 0, Amount: 100, Method: model.MethodCash},
		{AppointmentID: 9999, Amount: 100, Method: model.MethodCash},
	}
	for i, req := range cases {
		if _, err := f.rec.Register(ctx, f.admin, req); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}

	if _, err := f.rec.Register(ctx, f.other, RegisterRequest{AppointmentID: a.ID, Amount: 100, Method: model.MethodCard}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("paying for another client's appointment must be forbidden, got %v", err)
	}
}

func TestApproveAdvancesWithoutRegression(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.book(t, 9, model.StatusPending)
	p1, _ := f.rec.Register(ctx, f.client, RegisterRequest{AppointmentID: pending.ID, Amount: 100, Method: model.MethodCard})
	approved, err := f.rec.Approve(ctx, f.admin, p1.ID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != model.PaymentApproved || approved.ApproverID != f.admin.UserID {
		t.Fatalf("unexpected payment %+v", approved)
	}
	if got := f.status(t, pending.ID); got != model.StatusCompleted {
		t.Fatalf("expected completada, got %s", got)
	}

	done := f.book(t, 14, model.StatusCompleted)
	p2, _ := f.rec.Register(ctx, f.client, RegisterRequest{AppointmentID: done.ID, Amount: 100, Method: model.MethodTransfer})
	if _, err := f.rec.Approve(ctx, f.admin, p2.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if got := f.status(t, done.ID); got != model.StatusCompleted {
		t.Fatalf("completed appointment must stay completada, got %s", got)
	}

	if _, err := f.rec.Approve(ctx, f.admin, p1.ID); !apperr.Is(err, apperr.KindState) {
		t.Fatalf("approving twice must be a state error, got %v", err)
	}
	if _, err := f.rec.Approve(ctx, f.admin, 4242); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.rec.Approve(ctx, f.client, p2.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("clients cannot approve, got %v", err)
	}
}

func TestRejectLeavesAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, 15, model.StatusConfirmed)
	p, _ := f.rec.Register(ctx, f.client, RegisterRequest{AppointmentID: a.ID, Amount: 100, Method: model.MethodTransfer})

	rejected, err := f.rec.Reject(ctx, f.admin, p.ID, "comprobante ilegible")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.Status != model.PaymentRejected || rejected.RejectReason != "comprobante ilegible" {
		t.Fatalf("unexpected payment %+v", rejected)
	}
	if got := f.status(t, a.ID); got != model.StatusConfirmed {
		t.Fatalf("reject must not change the appointment, got %s", got)
	}
	if _, err := f.rec.Approve(ctx, f.admin, p.ID); !apperr.Is(err, apperr.KindState) {
		t.Fatalf("rechazado is terminal, got %v", err)
	}
}

func TestUncollectedAndCompleteAndCollect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unpaid := f.book(t, 8, model.StatusPending)
	pendingCard := f.book(t, 9, model.StatusConfirmed)
	paidCash := f.book(t, 10, model.StatusPending)
	cancelled := f.book(t, 11, model.StatusCancelled)

	_, _ = f.rec.Register(ctx, f.client, RegisterRequest{AppointmentID: pendingCard.ID, Amount: 100, Method: model.MethodCard})
	_, _ = f.rec.Register(ctx, f.client, RegisterRequest{AppointmentID: paidCash.ID, Amount: 100, Method: model.MethodCash})

	list, err := f.rec.Uncollected(ctx, f.admin)
	if err != nil {
		t.Fatalf("Uncollected failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != unpaid.ID || list[1].ID != pendingCard.ID {
		t.Fatalf("unexpected uncollected list: %+v", list)
	}

	p, appt, err := f.rec.CompleteAndCollect(ctx, f.admin, unpaid.ID, 0)
	if err != nil {
		t.Fatalf("CompleteAndCollect failed: %v", err)
	}
	if p.Amount != f.svc.Price || p.Method != model.MethodCash || p.Status != model.PaymentApproved {
		t.Fatalf("unexpected payment %+v", p)
	}
	if appt.Status != model.StatusCompleted || f.status(t, unpaid.ID) != model.StatusCompleted {
		t.Fatal("appointment must be completada")
	}

	list, _ = f.rec.Uncollected(ctx, f.admin)
	if len(list) != 1 || list[0].ID != pendingCard.ID {
		t.Fatalf("unexpected uncollected list after collect: %+v", list)
	}

	if _, _, err := f.rec.CompleteAndCollect(ctx, f.admin, cancelled.ID, 100); !apperr.Is(err, apperr.KindState) {
		t.Fatalf("cancelled appointments cannot be collected, got %v", err)
	}
	if _, _, err := f.rec.CompleteAndCollect(ctx, f.admin, 777, 100); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.rec.Uncollected(ctx, f.client); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("clients cannot see the collection list, got %v", err)
	}
}

func TestListScopesClients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, 16, model.StatusPending)
	p, _ := f.rec.Register(ctx, f.client, RegisterRequest{AppointmentID: a.ID, Amount: 100, Method: model.MethodCard})

	mine, err := f.rec.List(ctx, f.client, model.PaymentFilter{})
	if err != nil || len(mine) != 1 {
		t.Fatalf("expected 1 payment, got %d (err=%v)", len(mine), err)
	}
	theirs, _ := f.rec.List(ctx, f.other, model.PaymentFilter{})
	if len(theirs) != 0 {
		t.Fatalf("other clients must see nothing, got %d", len(theirs))
	}
	if _, err := f.rec.Get(ctx, f.other, p.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.rec.ForAppointment(ctx, f.other, a.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	byAppt, err := f.rec.ForAppointment(ctx, f.admin, a.ID)
	if err != nil || len(byAppt) != 1 {
		t.Fatalf("expected 1 payment for appointment, got %d (err=%v)", len(byAppt), err)
	}
}

func TestSettled(t *testing.T) {
	if Settled(nil) {
		t.Fatal("no payments, not settled")
	}
	if !Settled([]model.Payment{{Method: model.MethodCard, Status: model.PaymentRejected}, {Method: model.MethodCash}}) {
		t.Fatal("a cash payment settles")
	}
}
