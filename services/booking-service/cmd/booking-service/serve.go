package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/barberia/libs/auth"
	"github.com/md-rashed-zaman/barberia/libs/config"
	"github.com/md-rashed-zaman/barberia/libs/db"
	"github.com/md-rashed-zaman/barberia/libs/httpx"
	"github.com/md-rashed-zaman/barberia/libs/kafkax"
	otelx "github.com/md-rashed-zaman/barberia/libs/otel"
	"github.com/md-rashed-zaman/barberia/libs/runtime"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storage"
)

func newServeCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			return serve(s, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(s settings, migrate bool) error {
	logger := runtime.NewLoggerWithOptions(s.Service, s.Log)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(s.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	if s.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; logins will fail")
	}

	a, err := newApp(ctx, s, logger)
	if err != nil {
		logger.Error("store init failed", "driver", s.StoreDriver, "err", err)
		return err
	}
	defer a.Close()

	var checks []runtime.ReadyCheck
	if a.pool != nil {
		if migrate {
			if _, err := storage.Migrate(ctx, a.pool, logger); err != nil {
				return err
			}
		}
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(a.pool)})
	}
	if a.events != nil {
		publisher := outbox.NewPublisher(a.pool, a.events, logger, outbox.PublisherConfig{
			Brokers:   s.KafkaBrokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)
	}
	if s.KafkaBrokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(s.KafkaBrokers)})
	}

	var rdb *redis.Client
	if s.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     s.RedisAddr,
			Password: config.String("REDIS_PASSWORD", ""),
		})
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	var jwks *auth.JWKSClient
	if s.JWKSURL != "" {
		jwks = auth.NewJWKSClient(s.JWKSURL, 10*time.Minute)
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.New(handlers.Deps{
		Accounts:     a.accounts,
		Catalog:      a.catalog,
		Availability: a.resolver,
		Writer:       a.writer,
		Payments:     a.payments,
		Stats:        a.stats,
		Verifier:     auth.NewVerifier(s.JWTSecret, jwks),
		Logger:       logger,
	}).Register(mux)

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   s.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", httpx.RequestIDHeader},
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(s.BodyLimit),
		httpx.WithTimeout(s.RequestTimeout),
		rateLimiter(s, rdb, logger),
	)
	handler = otelhttp.NewHandler(handler, "booking")
	srv := &http.Server{
		Addr:              ":" + s.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "store", s.StoreDriver, "slots", a.grid.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}

// rateLimiter shares counters through Redis when it is configured and falls
// back to a per-process limiter otherwise.
func rateLimiter(s settings, rdb *redis.Client, logger *slog.Logger) httpx.Middleware {
	if rdb == nil {
		logger.Info("rate limiting enabled (in-memory)", "per_minute", s.RatePerMinute)
		return httpx.NewRateLimiter(s.RatePerMinute, time.Minute).Middleware()
	}
	logger.Info("rate limiting enabled (redis)", "per_minute", s.RatePerMinute, "redis_addr", s.RedisAddr)
	rl := httpx.NewRedisRateLimiter(rdb, s.RatePerMinute, time.Minute, "barberia:rl")
	return rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
}
