package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portfolioadmin/docs"
	"portfolioadmin/internal/collection"
	"portfolioadmin/internal/config"
	"portfolioadmin/internal/database"
	"portfolioadmin/internal/database/migration"
	handlers "portfolioadmin/internal/http/handler"
	"portfolioadmin/internal/http/middleware"
	"portfolioadmin/internal/logging"
	"portfolioadmin/internal/media"
	"portfolioadmin/internal/notify"
	"portfolioadmin/internal/otel"
	"portfolioadmin/internal/service"
	"portfolioadmin/internal/store"
	"portfolioadmin/internal/store/memory"
	"portfolioadmin/internal/store/postgres"
	"portfolioadmin/internal/store/sqlite"
)

// @title Portfolio Admin API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()
	log := logging.NewJSON(os.Stdout, loc, slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(context.Background(), "server_exit", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, log logging.Logger) error {
	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Uploads cannot work without the media host settings
	mediaClient, err := media.NewClient(cfg.Media, media.NewHTTPClient(cfg.Media.Timeout))
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	feed, err := notify.NewFeed(reg, notify.DefaultCapacity)
	if err != nil {
		return fmt.Errorf("init notifications: %w", err)
	}

	certificates := collection.NewCertificates(service.NewRecordService(st, "certificates"), st, feed, log)
	projects := collection.NewProjects(service.NewRecordService(st, "projects"), st, feed, log)
	for _, activate := range []func(context.Context) error{certificates.Activate, projects.Activate} {
		// A failed subscription is already notified; the API still serves
		// writes and media while reads stay empty.
		if err := activate(ctx); err != nil {
			log.Warn(ctx, "collection_unavailable", "error", err)
		}
	}
	defer certificates.Deactivate()
	defer projects.Deactivate()

	destroyer, err := newDestroyer(ctx, cfg)
	if err != nil {
		log.Warn(ctx, "media_destroy_disabled", "error", err)
	}

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestLogger(log))
	app.Use(promMiddleware.Handler())

	deps := handlers.Deps{
		Store:        st,
		Certificates: certificates,
		Projects:     projects,
		Media:        mediaClient,
		Destroyer:    destroyer,
		Feed:         feed,
		Log:          log,
	}
	handlers.RegisterRoutes(app, deps)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server_start", "addr", ":"+cfg.Port, "store", cfg.Store.Driver)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info(context.Background(), "server_shutdown")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// openStore builds the record store selected by STORE_DRIVER and runs its
// schema migration.
func openStore(ctx context.Context, cfg *config.AppConfig, log logging.Logger) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		log.Warn(ctx, "store_memory", "detail", "records are not persisted")
		return memory.New(), func() {}, nil

	case config.StoreDriverSQLite:
		db, err := database.NewSQLite(cfg.SQLite)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, migration.SQLite, "", log); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.New(db, log), func() { db.Close() }, nil

	case config.StoreDriverPostgres:
		dsn, err := database.BuildPostgresDSN(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, migration.Postgres, cfg.Database.NotifyChannel, log); err != nil {
			db.Close()
			return nil, nil, err
		}
		st := postgres.New(db, postgres.PgxDialer(dsn), cfg.Database.NotifyChannel, log)
		return st, func() { db.Close() }, nil

	default:
		return nil, nil, &config.ConfigError{Missing: []string{"STORE_DRIVER (postgres|sqlite|memory)"}}
	}
}

// newDestroyer returns the backend behind the delete intermediary, or an
// error when its credentials are incomplete.
func newDestroyer(ctx context.Context, cfg *config.AppConfig) (media.Destroyer, error) {
	if err := cfg.ValidateDestroy(); err != nil {
		return nil, err
	}
	switch cfg.Media.DestroyDriver {
	case config.DestroyDriverMinIO:
		d, err := media.NewMinIODestroyer(ctx, cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.DestroyDriverCloudinary:
		return media.NewCloudinaryDestroyer(cfg.Media, media.NewHTTPClient(cfg.Media.Timeout)), nil
	default:
		return nil, errors.New("unknown MEDIA_DESTROY_DRIVER " + cfg.Media.DestroyDriver)
	}
}
