// pointsd keeps the points store healthy: it applies schema migrations on
// start and runs the periodic ledger auditor. The engine itself is consumed
// as a library by the API service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/campuspoints/backend/internal/audit"
	"github.com/campuspoints/backend/internal/config"
	"github.com/campuspoints/backend/internal/database"
	"github.com/campuspoints/backend/internal/logging"
	"github.com/campuspoints/backend/internal/repository"
)

func main() {
	configPath := flag.String("config", "pointsd.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup("info").Error("loading config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	ctx := context.Background()
	pool, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to PostgreSQL, schema current")

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		logger.Error("creating river migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		logger.Error("river migrate up", "error", err)
		os.Exit(1)
	}

	ledgerRepo := repository.NewLedgerRepo(pool)

	workers := river.NewWorkers()
	river.AddWorker(workers, audit.NewWorker(ledgerRepo, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.AuditInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return audit.LedgerAuditArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		logger.Error("creating river client", "error", err)
		os.Exit(1)
	}

	if err := riverClient.Start(ctx); err != nil {
		logger.Error("starting river client", "error", err)
		os.Exit(1)
	}
	logger.Info("ledger auditor running", "interval", cfg.AuditInterval)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	if err := riverClient.Stop(ctx); err != nil {
		logger.Error("stopping river client", "error", err)
	}
}
