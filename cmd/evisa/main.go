package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"

	fiberadapter "github.com/meowls/evisa/adapters/fiber"
	pgxadapter "github.com/meowls/evisa/adapters/pgx"
	"github.com/meowls/evisa/config"
	"github.com/meowls/evisa/core"
	"github.com/meowls/evisa/database"
	"github.com/meowls/evisa/identity"
	"github.com/meowls/evisa/metrics"
	"github.com/meowls/evisa/notify"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("service exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	logger.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	storage := pgxadapter.New(pool)
	sessions := core.NewSessionManager(
		cfg.SessionMaxAge,
		storage,
		core.NewInMemoryCache(core.CacheConfig{}),
	)

	provider := identity.New(cfg.IdentityProviderURL, nil)
	auth := core.NewAuthService(storage, sessions, core.NewArgon2(), provider, collector, logger)

	mailer := notify.NewMailer(cfg.ResendAPIKey, cfg.SenderEmail, identity.NewSafeClient(10*time.Second))
	applications := core.NewApplicationService(storage, mailer, collector, logger)

	app := fiber.New()
	app.Use(recoverer.New())
	app.Use(requestid.New())
	app.Use(requestLogger(logger))
	if len(cfg.CORSOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowCredentials: true,
		}))
	}

	app.Get("/healthz", func(c fiber.Ctx) error {
		if err := pool.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(registry)))

	fiberadapter.New(app, auth, applications, cfg.BasePath, cfg.SessionMaxAge).RegisterRoutes()

	go reapSessions(ctx, storage, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

// reapSessions periodically deletes expired sessions so the table does
// not grow without bound.
func reapSessions(ctx context.Context, sessions core.SessionStorage, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpiredSessions(ctx)
			if err != nil {
				logger.Error("session reaper failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("reaped expired sessions", "count", n)
			}
		}
	}
}

// requestLogger emits one structured log line per completed request.
func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		logger.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestid.FromContext(c),
		)
		return err
	}
}
