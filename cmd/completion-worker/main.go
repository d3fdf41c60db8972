package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-appointment-scheduling/internal/appointment"
	"github.com/hackgods/hospital-appointment-scheduling/internal/config"
	"github.com/hackgods/hospital-appointment-scheduling/internal/db"
	"github.com/hackgods/hospital-appointment-scheduling/internal/logging"
	redisclient "github.com/hackgods/hospital-appointment-scheduling/internal/redis"
)

// completion-worker marks scheduled appointments on past dates as
// COMPLETED. It runs once at startup and then on COMPLETION_SCHEDULE.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("prod", "completion-worker")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, "completion-worker")
	if cfg.Store != config.StorePostgres {
		logger.Fatal().Str("store", cfg.Store).Msg("completion-worker needs STORE=postgres")
	}
	logger.Info().
		Str("env", cfg.Env).
		Str("schedule", cfg.CompletionSchedule).
		Str("timezone", cfg.Location.String()).
		Msg("completion-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	if err == nil {
		err = db.Migrate(pgCtx, pgPool)
	}
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres setup error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// The sweep never books, so the slot lock is never taken.
	svc := appointment.NewService(appointment.NewPgRepository(pgPool), redisclient.NewLocalSlotLocker(), cfg, logger)

	// Run once at startup
	runOnce(rootCtx, svc, logger)

	c := cron.New(cron.WithLocation(cfg.Location))
	if _, err := c.AddFunc(cfg.CompletionSchedule, func() { runOnce(rootCtx, svc, logger) }); err != nil {
		logger.Fatal().Err(err).Msg("invalid COMPLETION_SCHEDULE")
	}
	c.Start()

	<-rootCtx.Done()
	logger.Info().Msg("shutdown signal received, stopping completion worker")
	<-c.Stop().Done()
}

func runOnce(ctx context.Context, svc *appointment.Service, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.CompletePastAppointments(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("completion run error")
		return
	}
	logger.Info().Int("completed", n).Dur("took", time.Since(start)).Msg("completion run complete")
}
