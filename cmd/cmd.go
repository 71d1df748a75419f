package cmd

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reunion-countdown/internal/config"
	"reunion-countdown/internal/handlers"
	"reunion-countdown/internal/repository"
	"reunion-countdown/internal/services"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: reunion [-config config.yaml] <command>

commands:
  serve                                  run the widget backend (default)
  set -date YYYY-MM-DD [-time HH:MM] [-tz ±HH:MM]
                                         save a new target, asking for the secret
  status                                 print the current countdown
`

// app bundles the services every command needs
type app struct {
	cfg       *config.Config
	db        *sql.DB
	gate      *services.AccessGate
	timeStore *services.TimeStore
	countdown *services.CountdownService
}

// Run parses the command line and runs the selected command
func Run() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("reunion", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	command, rest := "serve", fs.Args()
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize")
		return 1
	}
	defer a.db.Close()

	switch command {
	case "serve":
		err = a.serve(ctx)
	case "set":
		err = a.set(ctx, rest, out)
	case "status":
		err = a.status(out)
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	if err != nil {
		log.Error().Err(err).Str("command", command).Msg("Command failed")
		return 1
	}
	return 0
}

func newApp(ctx context.Context, cfg *config.Config, notifiers ...services.ArrivalNotifier) (*app, error) {
	// Open local database
	db, err := repository.NewDB(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", cfg.Database.Path).Msg("Database opened")

	settingsRepo := repository.NewSettingsRepository(db)

	gate := services.NewAccessGate(settingsRepo)
	timeStore := services.NewTimeStore(settingsRepo, gate, cfg.Countdown)
	countdown := services.NewCountdownService(timeStore, services.RealClock{}, notifiers...)

	if err := countdown.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load countdown: %w", err)
	}

	return &app{
		cfg:       cfg,
		db:        db,
		gate:      gate,
		timeStore: timeStore,
		countdown: countdown,
	}, nil
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	a.countdown.AddNotifier(services.LogNotifier{})
	if cfg.Push.Enabled() {
		notifier, err := services.NewAPNsNotifier(cfg.Push)
		if err != nil {
			return err
		}
		a.countdown.AddNotifier(notifier)
		log.Info().Int("devices", len(cfg.Push.DeviceTokens)).Msg("APNs arrival notifications enabled")
	}

	var resolver services.URLResolver
	if cfg.AWS.Enabled() {
		signer, err := services.NewPhotoURLSigner(ctx, cfg.AWS)
		if err != nil {
			return err
		}
		resolver = signer
		log.Info().Str("bucket", cfg.AWS.S3Bucket).Msg("Photo URLs served from bucket")
	}

	puzzleService := services.NewPuzzleService(cfg.Photos, services.RealClock{}, nil, resolver)
	wsHub := services.NewWSHub()

	// Initialize handlers
	countdownHandler := handlers.NewCountdownHandler(a.countdown, a.timeStore, a.gate, wsHub)
	puzzleHandler := handlers.NewPuzzleHandler(puzzleService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, a.countdown, puzzleService)

	// Periodic tick
	scheduler := services.NewSchedulerService(time.UTC)
	if _, err := scheduler.ScheduleInterval(cfg.Countdown.TickInterval, func() {
		tickCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		broadcastTick(tickCtx, a.countdown, wsHub)
	}); err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handlers.NewRouter(countdownHandler, puzzleHandler, wsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}

// broadcastTick runs one countdown tick and pushes it to every open widget
func broadcastTick(ctx context.Context, countdown *services.CountdownService, hub *services.WSHub) {
	snap, arrivedNow := countdown.Tick(ctx)
	snap = handlers.Present(snap)

	if arrivedNow {
		hub.Broadcast(services.WSMessage{
			Type:    services.MsgArrived,
			Message: snap.StatusMessage,
			Data:    snap,
		})
	}
	hub.Broadcast(services.WSMessage{Type: services.MsgTick, Data: snap})
}

func (a *app) set(ctx context.Context, args []string, out io.Writer) error {
	form, err := a.timeStore.Form(ctx)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	date := fs.String("date", form.Date, "target date, YYYY-MM-DD")
	clock := fs.String("time", form.Time, "target time, HH:MM (24h)")
	tz := fs.String("tz", form.Timezone, "fixed UTC offset, ±HH:MM")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := a.countdown.Save(ctx, services.NewTerminalPrompter(), *date, *clock, *tz)
	if err != nil {
		return err
	}
	if !result.Decision.Granted {
		return fmt.Errorf("save rejected: %s", result.Decision.Reason)
	}

	fmt.Fprintf(out, "Saved: %s %s (%s) = %s\n",
		result.Target.LocalDate, result.Target.LocalTime, result.Target.TZOffset,
		services.FormatInstant(result.Target.UTC))
	return nil
}

func (a *app) status(out io.Writer) error {
	snap := handlers.Present(a.countdown.Snapshot())

	fmt.Fprintln(out, snap.StatusMessage)
	if snap.Target != nil {
		fmt.Fprintf(out, "%s  (target %s)\n", services.FormatCountdown(snap.Countdown), services.FormatInstant(snap.Target.UTC))
	}
	fmt.Fprintf(out, "%.0f%%  %s\n", snap.Progress*100, snap.CaptionMessage)
	return nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
