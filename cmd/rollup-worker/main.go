package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rentwise/rentwise-backend/internal/cron"
	"github.com/rentwise/rentwise-backend/internal/rollup"
	"github.com/rentwise/rentwise-backend/pkg/bigquery"
	"github.com/rentwise/rentwise-backend/pkg/config"
	"github.com/rentwise/rentwise-backend/pkg/db"
	"github.com/rentwise/rentwise-backend/pkg/logger"
	"github.com/rentwise/rentwise-backend/pkg/metrics"
	"github.com/rentwise/rentwise-backend/pkg/migrate"
	"github.com/rentwise/rentwise-backend/pkg/outbox"
	"github.com/rentwise/rentwise-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "rollup-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "rollup-worker"

	logg = logger.New(logger.Options{
		ServiceName: "rollup-worker",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var exporter rollup.SiteStatExporter
	if cfg.FeatureFlags.RollupExport {
		bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap bigquery", err)
			os.Exit(1)
		}
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing bigquery", err)
			}
		}()
		exporter = bqClient
	}

	engine, err := rollup.NewEngine(rollup.EngineParams{
		DB:       dbClient,
		Logger:   logg,
		Metrics:  metrics.NewRollupMetrics(prometheus.DefaultRegisterer),
		Exporter: exporter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rollup engine", err)
		os.Exit(1)
	}

	rollupJob, err := cron.NewRollupJob(cron.RollupJobParams{
		Logger:       logg,
		Engine:       engine,
		LookbackDays: cfg.Rollup.Lookback,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rollup job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}
	registry, err := cron.NewRegistry(rollupJob, retentionJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.Rollup.LockKey, cfg.App.Env)), cfg.Rollup.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	loc, err := cfg.Rollup.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid rollup timezone", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Schedule: cfg.Rollup.Schedule,
		Location: loc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"schedule":    cfg.Rollup.Schedule,
	})
	logg.Info(ctx, "starting rollup worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "rollup worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "rollup worker shutting down gracefully")
}

// lockName scopes the worker lock per environment so staging and prod
// workers sharing a Redis never block each other.
func lockName(format, env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(format, env)
}
