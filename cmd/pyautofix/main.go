package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/pyautofix/internal/adapter/driven/github"
	"github.com/ericfisherdev/pyautofix/internal/adapter/driven/gitrepo"
	"github.com/ericfisherdev/pyautofix/internal/adapter/driven/metrics"
	"github.com/ericfisherdev/pyautofix/internal/adapter/driven/process"
	sqliteadapter "github.com/ericfisherdev/pyautofix/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/pyautofix/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/pyautofix/internal/adapter/driving/web"
	"github.com/ericfisherdev/pyautofix/internal/application"
	"github.com/ericfisherdev/pyautofix/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Load configuration. A local .env file fills in unset variables.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"app_id", cfg.AppID,
		"env", cfg.Env,
	)

	// 3. Open database and run migrations on the writer connection.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete", "path", cfg.DBPath)

	// 4. Wire driven adapters.
	key, err := cfg.PrivateKeyPEM()
	if err != nil {
		return err
	}
	installations, err := githubadapter.NewAppProvider(cfg.AppID, key, cfg.GitHubAPIURL)
	if err != nil {
		return err
	}
	appBot, err := installations.BotLogin(ctx)
	if err != nil {
		return err
	}
	slog.Info("authenticated as app", "bot", appBot)
	plans, err := application.NewPlanResolver(application.PlanConfig{
		ProInstallations: cfg.ProInstallations,
		PlansFile:        cfg.PlansFile,
		Override:         cfg.PlanOverride,
		AllowOverride:    cfg.IsTest(),
	})
	if err != nil {
		return err
	}
	workspaces := gitrepo.NewFactory(
		gitrepo.Identity{Name: cfg.CommitAuthorName, Email: cfg.CommitAuthorEmail},
		gitrepo.WithBaseDir(cfg.WorkDir),
		gitrepo.WithGitHubHost(cfg.GitHubHost),
	)
	usageRepo := sqliteadapter.NewUsageRepo(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 5. Create application services.
	pipeline := application.NewPipeline(process.NewRunner(cfg.CommandTimeout), workspaces, application.PipelineConfig{
		RuffBin:  cfg.RuffBin,
		IsortBin: cfg.IsortBin,
		PipBin:   cfg.PipBin,
	})
	orchestrator := application.NewOrchestrator(application.OrchestratorDeps{
		Installations:      installations,
		Plans:              plans,
		Authorizer:         application.NewAuthorizer(application.NewSettingsStore(time.Now), appBot),
		Pipeline:           pipeline,
		Usage:              application.UsageRecorders{usageRepo, metrics.NewRecorder(reg)},
		TroubleshootingURL: cfg.TroubleshootingURL,
	})
	dispatcher := application.NewDispatcher(orchestrator)

	// 6. Register routes.
	mux := http.NewServeMux()
	httphandler.RegisterRoutes(mux, httphandler.NewHandler(dispatcher, []byte(cfg.WebhookSecret), usageRepo, slog.Default()))

	webhandler.RegisterRoutes(mux, webhandler.NewHandler(usageRepo, cfg.GitHubHost, slog.Default()))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.ApplyMiddleware(mux, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	// 7. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down", "in_flight", dispatcher.InFlight())

	// 8. Stop accepting webhooks, then let running pipelines finish so no
	// check run is left in progress.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		slog.Warn("abandoning in-flight events", "count", dispatcher.InFlight(), "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
