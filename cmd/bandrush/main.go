package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/kyral/bandrush/internal/adapters/http/api"
	app "github.com/kyral/bandrush/internal/app"
	"github.com/kyral/bandrush/internal/config"
	"github.com/kyral/bandrush/pkg/logger"
	"github.com/kyral/bandrush/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second

	systemMetricsInterval = 10 * time.Second
	statsRefreshInterval  = 5 * time.Second
	seasonWatchInterval   = time.Minute
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(
		app.WithConfig(cfg),
		app.WithLogger(log.Named("service")),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop(context.Background())

	scheduler, err := startJobs(ctx, svc, log.Named("jobs"))
	if err != nil {
		log.Error(ctx, "failed to start background jobs", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = scheduler.Shutdown() }()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Default().Handler())

	apiServer := api.NewServer(svc, cfg.AdminToken)
	apiServer.Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startJobs schedules the periodic background work: system metric
// refresh, service gauge refresh, and automatic season rollover once the
// current season's end time has passed.
func startJobs(ctx context.Context, svc *app.Service, log logger.Logger) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(systemMetricsInterval),
		gocron.NewTask(updateSystemMetrics),
	); err != nil {
		return nil, err
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(statsRefreshInterval),
		gocron.NewTask(func() {
			// Stats refreshes the non-event-driven gauges as a side effect.
			_ = svc.Stats(ctx)
		}),
	); err != nil {
		return nil, err
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(seasonWatchInterval),
		gocron.NewTask(func() {
			current := svc.CurrentSeason(ctx)
			if time.Now().Before(current.EndTime) {
				return
			}
			next, err := svc.Rollover(ctx)
			if err != nil {
				log.Error(ctx, "season rollover failed", logger.Error(err))
				return
			}
			log.Info(ctx, "season rolled over",
				logger.Uint64("ended", current.Number),
				logger.Uint64("started", next.Number))
		}),
	); err != nil {
		return nil, err
	}

	scheduler.Start()
	return scheduler, nil
}

// updateSystemMetrics refreshes process-level gauges.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateMemoryUsage(m.Alloc)
	metrics.UpdateGoroutineCount(runtime.NumGoroutine())
}
