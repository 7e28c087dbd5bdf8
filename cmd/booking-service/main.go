package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/vinaykumargajjela/care-link-appointments/internal/api"
	"github.com/vinaykumargajjela/care-link-appointments/internal/booking"
	"github.com/vinaykumargajjela/care-link-appointments/internal/cache"
	"github.com/vinaykumargajjela/care-link-appointments/internal/directory"
	"github.com/vinaykumargajjela/care-link-appointments/internal/identity"
	"github.com/vinaykumargajjela/care-link-appointments/internal/jobs"
	"github.com/vinaykumargajjela/care-link-appointments/internal/ledger"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/config"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/database"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/interfaces"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/logger"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/monitoring"
)

const serviceName = "care-link-booking"

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel)
	if envErr != nil {
		appLogger.WithError(envErr).Debug("No .env file loaded")
	}

	if err := run(cfg, appLogger); err != nil {
		appLogger.WithError(err).Fatal("Booking service failed")
	}
}

// storage holds the persistence backends selected by configuration
type storage struct {
	patients interfaces.PatientRepository
	ledger   interfaces.AppointmentLedger
	db       *database.DB
}

func openStorage(ctx context.Context, cfg *config.Config, metrics *monitoring.MetricsCollector, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver != config.DriverPostgres {
		log.Info("Using in-memory storage for patients and appointments")
		return &storage{
			patients: identity.NewMemoryRepository(),
			ledger:   ledger.NewMemoryLedger(),
		}, nil
	}

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.CreateSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &storage{
		patients: identity.NewPostgresRepository(db, log),
		ledger:   ledger.NewPostgresLedger(db, metrics, log),
		db:       db,
	}, nil
}

// appointmentCache builds the configured cache and, for redis, its health check
func appointmentCache(ctx context.Context, cfg *config.Config, health *monitoring.HealthManager) (interfaces.AppointmentCache, jobs.CacheSweeper, func() error, error) {
	switch cfg.Cache.Driver {
	case config.DriverRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.Redis, cfg.Cache.KeyPrefix)
		if err != nil {
			return nil, nil, nil, err
		}
		health.RegisterChecker("cache", monitoring.ErrorHealthChecker(rc.Ping))
		return rc, nil, rc.Close, nil
	case config.DriverNone:
		return cache.Noop{}, nil, func() error { return nil }, nil
	default:
		mc := cache.NewMemoryCache()
		return mc, mc, func() error { return nil }, nil
	}
}

func run(cfg *config.Config, appLogger *logger.Logger) error {
	ctx := context.Background()

	metrics := monitoring.NewMetricsCollector(serviceName)
	tracing, err := monitoring.NewTracingManager(&monitoring.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		JaegerEndpoint: tracingEndpoint(cfg),
		Environment:    cfg.Environment,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return err
	}
	health := monitoring.NewHealthManager(serviceName, cfg.Tracing.ServiceVersion)

	store, err := openStorage(ctx, cfg, metrics, appLogger)
	if err != nil {
		return err
	}
	if store.db != nil {
		defer store.db.Close()
		health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(store.db.DB))
	}

	appointments, sweeper, closeCache, err := appointmentCache(ctx, cfg, health)
	if err != nil {
		return err
	}
	defer closeCache()

	existing, err := store.ledger.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count existing appointments: %w", err)
	}
	ids, err := booking.NewIDGenerator(cfg.Booking.IDStrategy, int64(existing))
	if err != nil {
		return err
	}

	doctors := directory.NewSeededStore(appLogger)
	identityService := identity.NewService(
		cfg.Identity,
		store.patients,
		identity.NewPasswordManager(0),
		metrics,
		appLogger,
	)
	engine := booking.NewEngine(booking.Dependencies{
		Config:    cfg.Booking,
		CacheTTL:  cfg.Cache.TTL(),
		Directory: doctors,
		Identity:  identityService,
		Ledger:    store.ledger,
		Cache:     appointments,
		IDs:       ids,
		Metrics:   metrics,
		Logger:    appLogger,
	})
	// The directory is seeded fresh on every boot; slots already held in a
	// persistent ledger must be taken again before serving bookings.
	if _, err := engine.RestoreReservations(ctx); err != nil {
		return err
	}

	rateLimiter := api.NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute)
	server := api.New(cfg, api.Dependencies{
		Directory:   doctors,
		Identity:    identityService,
		Booking:     engine,
		Tokens:      identity.NewTokenIssuer(cfg.JWT.SecretKey, time.Duration(cfg.JWT.AccessTokenTTL)*time.Second, cfg.JWT.Issuer),
		RateLimiter: rateLimiter,
		Health:      health,
		Metrics:     metrics,
		Tracing:     tracing,
		Logger:      appLogger,
	})

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(cfg.Jobs, jobs.Dependencies{
			RateLimiter: rateLimiter,
			Cache:       sweeper,
			Stats:       engine,
			MaxIdle:     time.Duration(cfg.RateLimit.CleanupInterval) * time.Second,
			Logger:      appLogger,
		})
		if _, err := scheduler.Register(); err != nil {
			return err
		}
		scheduler.Start()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case sig := <-quit:
		appLogger.WithField("signal", sig.String()).Info("Shutting down booking service")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Failed to shutdown server gracefully")
	}
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			appLogger.WithError(err).Warn("Maintenance jobs did not finish before shutdown")
		}
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("Failed to flush traces")
	}

	appLogger.Info("Booking service stopped")
	return nil
}

func tracingEndpoint(cfg *config.Config) string {
	if !cfg.Tracing.Enabled {
		return ""
	}
	return cfg.Tracing.JaegerEndpoint
}
