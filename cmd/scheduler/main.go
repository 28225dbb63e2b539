package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"agenda/internal/clock"
	"agenda/internal/database"
	"agenda/internal/services"
	"agenda/internal/store"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	log := newLogger()

	if err := database.InitDB(log); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	st := store.NewGormStore(database.GetDB())
	clk := clock.Real{}

	worker := services.NewReminderWorker(st, services.DefaultSenders(log), clk, envDuration("REMINDER_TICK", services.DefaultReminderTick), log)
	janitor := services.NewTokenJanitor(st, clk, log)
	janitorTick := envDuration("TOKEN_CLEANUP_TICK", services.DefaultJanitorTick)

	// SkipIfStillRunning keeps a long tick from ever overlapping the next
	// one; overlapping ticks would race on the same reminder rows.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{log})))

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", worker.TickPeriod()), worker.RunTick); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule reminder worker")
	}
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", janitorTick), janitor.RunTick); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule token janitor")
	}

	c.Start()
	log.Info().
		Dur("reminder_tick", worker.TickPeriod()).
		Dur("token_cleanup_tick", janitorTick).
		Msg("scheduler started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("signal received, shutting down")

	// Stop scheduling new ticks and let any in-flight tick finish.
	<-c.Stop().Done()
	log.Info().Msg("scheduler exiting")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

// envDuration reads a duration environment variable, falling back on parse
// failure or absence.
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// cronLogger routes cron's messages (notably overlap skips) into zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
