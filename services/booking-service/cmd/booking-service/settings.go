package main

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/barberia/libs/config"
	"github.com/md-rashed-zaman/barberia/libs/runtime"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/slots"
)

const (
	driverPostgres = "postgres"
	driverMemory   = "memory"
)

type settings struct {
	Service       string
	Port          string
	StoreDriver   string
	DatabaseURL   string
	StoreTimeout  time.Duration
	Slots         slots.Config
	JWTSecret     string
	TokenTTL      time.Duration
	JWKSURL       string
	KafkaBrokers  string
	RedisAddr     string
	RatePerMinute int
	CORSOrigins   []string
	BodyLimit     int64
	RequestTimeout time.Duration
	Log           runtime.LogOptions
}

func loadSettings() (settings, error) {
	s := settings{
		Service:      config.String("SERVICE_NAME", "booking-service"),
		StoreDriver:  config.String("STORE_DRIVER", driverPostgres),
		JWTSecret:    config.String("JWT_SECRET", ""),
		JWKSURL:      config.String("JWKS_URL", ""),
		KafkaBrokers: config.String("KAFKA_BROKERS", ""),
		RedisAddr:    config.String("REDIS_ADDR", ""),
		CORSOrigins:  config.List("CORS_ALLOWED_ORIGINS"),
		Log: runtime.LogOptions{
			Level: config.String("LOG_LEVEL", "info"),
			File:  config.String("LOG_FILE", ""),
		},
	}
	var err error
	if s.Port, err = config.Port("PORT", "8083"); err != nil {
		return s, err
	}
	switch s.StoreDriver {
	case driverPostgres:
		if s.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
			return s, err
		}
	case driverMemory:
	default:
		return s, fmt.Errorf("STORE_DRIVER must be %s or %s (got %q)", driverPostgres, driverMemory, s.StoreDriver)
	}
	if s.StoreTimeout, err = config.Millis("STORE_TIMEOUT_MS", 3*time.Second); err != nil {
		return s, err
	}
	if s.Slots, err = slotSettings(); err != nil {
		return s, err
	}
	ttl, err := config.Int("JWT_TTL_MINUTES", 24*60)
	if err != nil {
		return s, err
	}
	s.TokenTTL = time.Duration(ttl) * time.Minute
	if s.RatePerMinute, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return s, err
	}
	limit, err := config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20)
	if err != nil {
		return s, err
	}
	s.BodyLimit = int64(limit)
	secs, err := config.Int("REQUEST_TIMEOUT_SECONDS", 15)
	if err != nil {
		return s, err
	}
	s.RequestTimeout = time.Duration(secs) * time.Second
	return s, nil
}

func slotSettings() (slots.Config, error) {
	def := slots.DefaultConfig()
	width, err := config.Int("SLOT_WIDTH_MINUTES", int(def.Width/time.Minute))
	if err != nil {
		return slots.Config{}, err
	}
	return slots.ParseConfig(
		config.String("SLOT_OPEN", "08:00"),
		config.String("SLOT_CLOSE", "19:00"),
		width,
	)
}
