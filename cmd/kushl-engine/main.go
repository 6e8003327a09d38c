package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"github.com/sourcegraph/conc"
	"gopkg.in/natefinch/lumberjack.v2"

	server "github.com/itsthekvd/kushlapp-engine/internal"
	"github.com/itsthekvd/kushlapp-engine/internal/application"
	"github.com/itsthekvd/kushlapp-engine/internal/assignment"
	"github.com/itsthekvd/kushlapp-engine/internal/commission"
	"github.com/itsthekvd/kushlapp-engine/internal/config"
	"github.com/itsthekvd/kushlapp-engine/internal/eventbus"
	"github.com/itsthekvd/kushlapp-engine/internal/hierarchy"
	hierarchyrepo "github.com/itsthekvd/kushlapp-engine/internal/hierarchy/repositoryimpl"
	"github.com/itsthekvd/kushlapp-engine/internal/lifecycle"
	"github.com/itsthekvd/kushlapp-engine/internal/notification"
	"github.com/itsthekvd/kushlapp-engine/internal/pushsubscription"
	pushsubrepo "github.com/itsthekvd/kushlapp-engine/internal/pushsubscription/repositoryimpl"
	"github.com/itsthekvd/kushlapp-engine/internal/recurrence"
	"github.com/itsthekvd/kushlapp-engine/internal/review"
	"github.com/itsthekvd/kushlapp-engine/internal/task"
	taskrepo "github.com/itsthekvd/kushlapp-engine/internal/task/repositoryimpl"
	"github.com/itsthekvd/kushlapp-engine/internal/timeline"
	"github.com/itsthekvd/kushlapp-engine/pkg/clog"
	"github.com/itsthekvd/kushlapp-engine/pkg/storage"
)

var (
	app     = kingpin.New("kushl-engine", "Task lifecycle and assignment workflow engine")
	envFile = app.Flag("env-file", "Load environment variables from this file").Default(".env").String()

	serveCmd = app.Command("serve", "Run the engine HTTP server").Default()

	sweepCmd = app.Command("sweep", "Run one recurrence sweep and exit")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Missing .env is fine; real deployments configure the process env directly.
	_ = godotenv.Load(*envFile)

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}
	setupLogger(env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	switch command {
	case serveCmd.FullCommand():
		if err := runServe(ctx, env); err != nil {
			slog.Error("server exited with error", "error", err)
			os.Exit(1)
		}
	case sweepCmd.FullCommand():
		if err := runSweep(ctx, env); err != nil {
			slog.Error("sweep failed", "error", err)
			os.Exit(1)
		}
	}
}

func setupLogger(env *config.Env) {
	level := env.SlogLevel()

	var out io.Writer = os.Stderr
	if env.LogFile != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   env.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
		})
	}

	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(out, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))
}

func setupStorage(ctx context.Context, env *config.Env) (storage.Storage, error) {
	if env.StorageEnv.Type == "s3" {
		return storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
	}
	return storage.NewLocalStorage(env.BaseDir)
}

func setupCalculator(env *config.Env) (*commission.Calculator, error) {
	tiers := commission.DefaultTiers()
	if env.CommissionTiersPath != "" {
		loaded, err := commission.LoadFile(env.CommissionTiersPath)
		if err != nil {
			return nil, err
		}
		tiers = loaded
	}
	return commission.NewCalculator(tiers)
}

func runServe(ctx context.Context, env *config.Env) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := setupStorage(ctx, env)
	if err != nil {
		return err
	}

	calc, err := setupCalculator(env)
	if err != nil {
		return err
	}

	bus := eventbus.New()

	taskRepo := taskrepo.NewYAMLRepository(store)
	projectRepo := hierarchyrepo.NewProjectYAMLRepository(store)
	sprintRepo := hierarchyrepo.NewSprintYAMLRepository(store)
	campaignRepo := hierarchyrepo.NewCampaignYAMLRepository(store)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)

	engine := assignment.NewEngine(taskRepo, calc, bus)
	lifecycleService := lifecycle.NewService(taskRepo, campaignRepo, bus)
	applicationService := application.NewService(taskRepo, engine, bus)
	timelineService := timeline.NewService(taskRepo)
	recurrenceService := recurrence.NewService(taskRepo, bus)
	reviewService := review.NewService(taskRepo, bus)

	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSender := notification.NewSender(vapidEnv, pushSubRepo)
	pushDispatcher := notification.NewDispatcher(bus, pushSender, taskRepo)

	srv := server.NewServer(
		config.BaseEnvFromEnv(env),
		task.NewServer(taskRepo),
		lifecycle.NewServer(lifecycleService),
		application.NewServer(applicationService),
		assignment.NewServer(engine),
		timeline.NewServer(timelineService),
		recurrence.NewServer(recurrenceService),
		commission.NewServer(calc),
		review.NewServer(reviewService),
		hierarchy.NewServer(projectRepo, sprintRepo, campaignRepo),
		pushsubscription.NewServer(pushSubRepo, vapidEnv),
	)

	sweeper := recurrence.NewSweeper(recurrenceService, env.SweepInterval)

	var wg conc.WaitGroup
	wg.Go(func() { pushDispatcher.Start(ctx) })
	wg.Go(func() {
		if err := sweeper.Start(ctx); err != nil {
			slog.Error("recurrence sweeper stopped", "error", err)
		}
	})
	if env.CommissionTiersPath != "" {
		wg.Go(func() {
			if err := calc.Watch(ctx, env.CommissionTiersPath); err != nil {
				slog.Error("commission tier watcher stopped", "error", err)
			}
		})
	}

	serveErr := make(chan error, 1)
	wg.Go(func() {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	})

	var exitErr error
	select {
	case <-ctx.Done():
	case exitErr = <-serveErr:
	}
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	cancel()
	wg.Wait()
	return exitErr
}

// runSweep performs a single recurrence pass. Useful as a cron fallback when
// the long-running server is not deployed.
func runSweep(ctx context.Context, env *config.Env) error {
	store, err := setupStorage(ctx, env)
	if err != nil {
		return err
	}
	bus := eventbus.New()
	taskRepo := taskrepo.NewYAMLRepository(store)
	return recurrence.NewService(taskRepo, bus).Sweep(ctx, time.Now())
}
