package catalog

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

func ptr[T any](v T) *T { return &v }

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	c := New(store, storecall.Policy{Timeout: time.Second}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	admin := model.Actor{UserID: 1, Role: model.RoleAdmin}

	svc, err := c.Create(ctx, admin, Input{
		Name:            ptr("  Corte clasico "),
		Price:           ptr(model.MoneyFromUnits(25000)),
		DurationMinutes: ptr(30),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if svc.ID == 0 || svc.Name != "Corte clasico" {
		t.Fatalf("unexpected service %+v", svc)
	}

	updated, err := c.Update(ctx, admin, svc.ID, Input{Description: ptr("con lavado")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Description != "con lavado" || updated.Price != model.MoneyFromUnits(25000) {
		t.Fatalf("partial update lost fields: %+v", updated)
	}

	list, err := c.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 service, got %d (err=%v)", len(list), err)
	}

	u := model.User{Name: "Ana", Email: "ana@example.com", Role: model.RoleClient}
	_ = store.CreateUser(ctx, &u)
	appt := model.Appointment{ClientID: u.ID, ServiceID: svc.ID, ScheduledAt: time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC), Status: model.StatusPending}
	if err := store.CreateAppointment(ctx, &appt); err != nil {
		t.Fatalf("CreateAppointment failed: %v", err)
	}
	if err := c.Delete(ctx, admin, svc.ID); !apperr.Is(err, apperr.KindDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if err := store.DeleteAppointment(ctx, appt.ID); err != nil {
		t.Fatalf("DeleteAppointment failed: %v", err)
	}
	if err := c.Delete(ctx, admin, svc.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, svc.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceValidation(t *testing.T) {
	ctx := context.Background()
	c := New(memstore.New(), storecall.Policy{Timeout: time.Second}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	admin := model.Actor{UserID: 1, Role: model.RoleAdmin}
	client := model.Actor{UserID: 2, Role: model.RoleClient}

	if _, err := c.Create(ctx, client, Input{Name: ptr("x"), Price: ptr(model.Money(100))}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := c.Create(ctx, admin, Input{Name: ptr("x")}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("missing price must fail, got %v", err)
	}
	if _, err := c.Create(ctx, admin, Input{Name: ptr("  "), Price: ptr(model.Money(100))}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("blank name must fail, got %v", err)
	}
	if _, err := c.Create(ctx, admin, Input{Name: ptr("x"), Price: ptr(model.Money(-1))}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("negative price must fail, got %v", err)
	}
	if _, err := c.Update(ctx, admin, 42, Input{Name: ptr("y")}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
