package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tokenbook/tokenbook/internal/config"
	"github.com/tokenbook/tokenbook/internal/events"
	"github.com/tokenbook/tokenbook/internal/issuance"
	"github.com/tokenbook/tokenbook/internal/ledger"
	"github.com/tokenbook/tokenbook/internal/middleware"
	"github.com/tokenbook/tokenbook/internal/token"
	"github.com/tokenbook/tokenbook/internal/transfers"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.CallerAccount())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
		app.Use(middleware.MutationRateLimit(d.Cache, 120))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Event sink: external observers follow the Redis channel when a cache
	// is configured, otherwise events go to the structured log.
	var sink events.Sink
	if d.Cache != nil {
		sink = events.NewRedisSink(d.Cache, d.Cfg.EventChannel)
	} else {
		sink = events.NewLoggerSink(d.Logger)
	}

	// Ledger backend and repositories
	var ledgerBackend ledger.Ledger
	var tokenRepo token.Repository
	if d.DB != nil {
		pgLedger := ledger.NewPostgresLedger(d.DB, sink)
		if err := pgLedger.Migrate(context.Background()); err != nil {
			return err
		}
		pgRepo := token.NewPostgresRepository(d.DB)
		if err := pgRepo.Migrate(context.Background()); err != nil {
			return err
		}
		ledgerBackend = pgLedger
		tokenRepo = pgRepo
	} else {
		ledgerBackend = ledger.NewInMemory(sink)
		tokenRepo = token.NewMemoryRepository()
	}

	// Services and handlers
	var authorizer issuance.Authorizer
	if d.Cfg.AdminKeyHash != "" {
		keyAuth, err := issuance.NewKeyAuthorizer(d.Cfg.AdminKeyHash)
		if err != nil {
			return err
		}
		authorizer = keyAuth
	} else {
		authorizer = issuance.AllowAll{}
	}

	tokenSvc := token.NewService(tokenRepo, ledgerBackend)
	transferSvc := transfers.NewService(ledgerBackend)
	issuanceSvc, err := issuance.NewService(ledgerBackend, authorizer)
	if err != nil {
		return err
	}

	tokenHandler := token.NewHandler(tokenSvc)
	transferHandler := transfers.NewHandler(transferSvc)
	issuanceHandler := issuance.NewHandler(issuanceSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterTokenRoutes(api, tokenHandler)
	RegisterTransferRoutes(api, transferHandler)
	RegisterIssuanceRoutes(api, issuanceHandler)

	return nil
}
