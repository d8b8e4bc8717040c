// Package catalog manages the services offered by the shop.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storecall"
)

type Store interface {
	CreateService(ctx context.Context, svc *model.Service) error
	GetService(ctx context.Context, id int64) (model.Service, error)
	ListServices(ctx context.Context) ([]model.Service, error)
	UpdateService(ctx context.Context, id int64, fn func(*model.Service) error) (model.Service, error)
	DeleteService(ctx context.Context, id int64) error
}

type Catalog struct {
	store  Store
	policy storecall.Policy
	logger *slog.Logger
}

func New(store Store, policy storecall.Policy, logger *slog.Logger) *Catalog {
	return &Catalog{store: store, policy: policy, logger: logger}
}

// Input holds service fields; nil pointers leave a field unchanged on update.
type Input struct {
	Name            *string
	Description     *string
	Price           *model.Money
	DurationMinutes *int
}

func (c *Catalog) List(ctx context.Context) ([]model.Service, error) {
	return storecall.Read(ctx, c.policy, "list services", c.store.ListServices)
}

func (c *Catalog) Get(ctx context.Context, id int64) (model.Service, error) {
	svc, err := storecall.Read(ctx, c.policy, "get service", func(ctx context.Context) (model.Service, error) {
		return c.store.GetService(ctx, id)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return model.Service{}, apperr.NotFound("service %d not found", id)
	}
	return svc, err
}

func (c *Catalog) Create(ctx context.Context, actor model.Actor, in Input) (model.Service, error) {
	if !actor.IsAdmin() {
		return model.Service{}, apperr.Forbidden("only admins can manage services")
	}
	if in.Name == nil || in.Price == nil {
		return model.Service{}, apperr.Validation("nombre and precio are required")
	}
	var svc model.Service
	if err := apply(&svc, in); err != nil {
		return model.Service{}, err
	}
	err := storecall.Exec(ctx, c.policy, "create service", func(ctx context.Context) error {
		return c.store.CreateService(ctx, &svc)
	})
	if err != nil {
		return model.Service{}, err
	}
	c.logger.Info("service created", "service_id", svc.ID, "name", svc.Name)
	return svc, nil
}

func (c *Catalog) Update(ctx context.Context, actor model.Actor, id int64, in Input) (model.Service, error) {
	if !actor.IsAdmin() {
		return model.Service{}, apperr.Forbidden("only admins can manage services")
	}
	svc, err := storecall.Write(ctx, c.policy, "update service", func(ctx context.Context) (model.Service, error) {
		return c.store.UpdateService(ctx, id, func(svc *model.Service) error {
			return apply(svc, in)
		})
	})
	if errors.Is(err, storage.ErrNotFound) {
		return model.Service{}, apperr.NotFound("service %d not found", id)
	}
	if err != nil {
		return model.Service{}, err
	}
	c.logger.Info("service updated", "service_id", id)
	return svc, nil
}

// Delete refuses services that appointments still point at.
func (c *Catalog) Delete(ctx context.Context, actor model.Actor, id int64) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("only admins can manage services")
	}
	err := storecall.Exec(ctx, c.policy, "delete service", func(ctx context.Context) error {
		return c.store.DeleteService(ctx, id)
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("service %d not found", id)
	case errors.Is(err, storage.ErrReferenced):
		return apperr.Wrap(apperr.KindDependency, err, "service %d has appointments", id)
	case err != nil:
		return err
	}
	c.logger.Info("service deleted", "service_id", id)
	return nil
}

func apply(svc *model.Service, in Input) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperr.Validation("nombre must not be empty")
		}
		svc.Name = name
	}
	if in.Description != nil {
		svc.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return apperr.Validation("precio must not be negative")
		}
		svc.Price = *in.Price
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes < 0 {
			return apperr.Validation("duracion must not be negative")
		}
		svc.DurationMinutes = *in.DurationMinutes
	}
	return nil
}
