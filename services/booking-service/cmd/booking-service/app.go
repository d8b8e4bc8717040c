package main

import (
	"context"
	"log/slog"

	"github.com/md-rashed-zaman/barberia/libs/db"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/accounts"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/slots"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/stats"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storage/memstore"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storecall"
)

// engineStore is everything the services need from persistence. Both the
// Postgres store and the in-memory store satisfy it.
type engineStore interface {
	accounts.Store
	catalog.Store
	booking.Store
	payments.Store
	stats.Store
}

// app holds the wired services for one process.
type app struct {
	pool     *db.Pool
	events   *outbox.Repository
	store    engineStore
	grid     *slots.Grid
	accounts *accounts.Accounts
	catalog  *catalog.Catalog
	resolver *availability.Resolver
	writer   *booking.Writer
	payments *payments.Reconciler
	stats    *stats.Aggregator
}

func newApp(ctx context.Context, s settings, logger *slog.Logger) (*app, error) {
	grid, err := slots.New(s.Slots)
	if err != nil {
		return nil, err
	}
	a := &app{grid: grid}

	switch s.StoreDriver {
	case driverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		a.store = memstore.New()
	default:
		pool, err := db.Open(ctx, s.DatabaseURL, db.Options{})
		if err != nil {
			return nil, err
		}
		a.pool = pool
		if s.KafkaBrokers != "" {
			a.events = outbox.NewRepository()
		} else {
			logger.Info("KAFKA_BROKERS not set; domain events are not recorded")
		}
		a.store = storage.NewStore(pool, a.events)
	}

	policy := storecall.Policy{Timeout: s.StoreTimeout}
	a.accounts = accounts.New(a.store, policy, accounts.Config{Secret: s.JWTSecret, TokenTTL: s.TokenTTL}, logger)
	a.catalog = catalog.New(a.store, policy, logger)
	a.resolver = availability.NewResolver(grid, a.store, policy)
	a.payments = payments.NewReconciler(a.store, policy, logger)
	a.writer = booking.NewWriter(a.store, grid, a.payments, policy, logger)
	a.stats = stats.NewAggregator(a.store, policy)
	return a, nil
}

func (a *app) Close() {
	a.pool.Close()
}
