package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"docviewer/docs"
	"docviewer/internal/config"
	"docviewer/internal/database"
	"docviewer/internal/database/migration"
	handlers "docviewer/internal/http/handler"
	"docviewer/internal/http/middleware"
	"docviewer/internal/logger"
	tracing "docviewer/internal/otel"
	"docviewer/internal/repository"
	"docviewer/internal/repository/postgres"
	"docviewer/internal/scanner"
	"docviewer/internal/service"
	"docviewer/internal/storage"
	"docviewer/internal/viewing"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Load configuration from environment variables (.env auto-loaded if present)
		cfg := config.Load()
		log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runServe(ctx, cfg, log); err != nil {
			log.Error().Err(err).Msg("server stopped with error")
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	// running the binary without a subcommand starts the server
	rootCmd.RunE = serveCmd.RunE
}

// registerSwagger fixes the advertised host before serving; handlers only
// read the shared swagger info. An empty APP_HOST leaves the host and scheme
// unset so the UI targets the origin it was loaded from.
func registerSwagger(app *fiber.App, cfg *config.AppConfig) {
	docs.SwaggerInfo.Host = cfg.AppHost
	docs.SwaggerInfo.Schemes = []string{}
	app.Get("/swagger/*", swagger.HandlerDefault)
}

func newDocumentStore(cfg *config.AppConfig) (storage.DocumentStore, error) {
	switch cfg.Store.Backend {
	case "", "fs":
		fsStore, err := storage.NewFileStore(cfg.Store.Root)
		if err != nil {
			return nil, err
		}
		return fsStore, nil
	case "minio":
		return storage.NewMinIO(cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func runServe(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	store, err := newDocumentStore(cfg)
	if err != nil {
		return fmt.Errorf("init document store: %w", err)
	}

	client, err := viewing.NewHTTPClient(cfg.Viewing)
	if err != nil {
		return fmt.Errorf("init viewing client: %w", err)
	}

	// Session ledger is optional; without DB_HOST sessions are only logged.
	var (
		sessions repository.SessionRepository
		pinger   handlers.Pinger
	)
	if cfg.Database.Enabled() {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		sessions = postgres.NewSessionPostgres(db)
		pinger = db
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	svc := service.NewViewingService(store, scanner.New(), client, sessions, service.Options{
		DefaultDocument:      cfg.Store.DefaultDocument,
		UploadTimeout:        cfg.Viewing.UploadTimeout,
		MaxConcurrentUploads: cfg.Viewing.MaxConcurrentUploads,
		Logger:               log,
		Metrics:              metrics,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	handlers.RegisterRoutes(app, pinger, svc, handlers.PageConfig{
		Title:     cfg.Page.Title,
		ViewerURL: cfg.Page.ViewerURL,
	})

	registerSwagger(app, cfg)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("store", cfg.Store.Backend).
			Str("viewing_service", cfg.Viewing.BaseURL).
			Bool("ledger", cfg.Database.Enabled()).
			Msg("server starting")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.ShutdownWithContext(sctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown server: %w", err))
	}
	// uploads run detached from requests; let in-flight ones finish
	if err := svc.Wait(sctx); err != nil {
		errs = append(errs, fmt.Errorf("wait for uploads: %w", err))
	}
	log.Info().Msg("server stopped")
	return errors.Join(errs...)
}
