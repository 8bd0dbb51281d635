package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"mailminder/internal/config"
	"mailminder/internal/database"
	"mailminder/internal/mailer"
	"mailminder/internal/materialize"
	"mailminder/internal/repository"
	"mailminder/internal/scheduler"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.DatabaseURI == "" {
		log.Fatal().Msg("DATABASE_URI is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	seriesRepo := repository.NewSeriesRepository(db)
	occurrenceRepo := repository.NewOccurrenceRepository(db)

	// Notifications leave the process through a single consumer; a real
	// mail transport plugs in here in place of the log sender.
	queue := mailer.NewQueue(mailer.NewLogSender(log), log)
	queue.Start()

	sweep := scheduler.New(seriesRepo, queue, log, scheduler.Options{
		Interval: cfg.SweepInterval,
		CC:       cfg.MailCC,
		Sender:   cfg.MailSender,
		LogoPath: cfg.LogoPath,
	})
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweep.Run(ctx)
	}()

	mat := materialize.New(occurrenceRepo, log)
	matSweep := scheduler.NewMaterializeSweep(seriesRepo, mat, log, cfg.HorizonDays)

	c := cron.New()
	if _, err := c.AddFunc(cfg.MaterializeCron, func() { matSweep.Tick(ctx) }); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.MaterializeCron).Msg("invalid materialization schedule")
	}
	c.Start()
	log.Info().Str("spec", cfg.MaterializeCron).Msg("materialization sweep scheduled")

	// Fill the occurrence window once at startup so a freshly created
	// database is usable before the first cron firing.
	matSweep.Tick(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")

	cancel()
	<-sweepDone
	<-c.Stop().Done()
	// Drain the last in-flight notification before exiting.
	queue.Shutdown()
}
