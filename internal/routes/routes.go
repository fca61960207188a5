package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/splitdue/splitdue/internal/charge"
	"github.com/splitdue/splitdue/internal/config"
	"github.com/splitdue/splitdue/internal/installment"
	"github.com/splitdue/splitdue/internal/jobs"
	"github.com/splitdue/splitdue/internal/middleware"
	"github.com/splitdue/splitdue/internal/wallet"
	"github.com/splitdue/splitdue/internal/webhook"
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
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
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
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Stores fall back to memory in dev when no database is configured.
	var (
		walletStore      wallet.Store
		chargeStore      charge.Store
		installmentStore installment.Store
		webhookStore     webhook.Store
	)
	if d.DB != nil {
		walletStore = wallet.NewPostgresStore(d.DB)
		chargeStore = charge.NewPostgresStore(d.DB)
		installmentStore = installment.NewPostgresStore(d.DB)
		webhookStore = webhook.NewPostgresStore(d.DB)
	} else {
		walletStore = wallet.NewMemoryStore()
		chargeStore = charge.NewMemoryStore()
		installmentStore = installment.NewMemoryStore()
		webhookStore = webhook.NewMemoryStore()
	}

	var queue jobs.Queue
	if d.Cache != nil {
		queue = jobs.NewRedisQueue(d.Cache)
	} else {
		queue = jobs.NewMemoryQueue(0)
	}

	walletSvc := wallet.NewService(walletStore)
	installmentSvc := installment.NewService(installmentStore, chargeStore, queue, d.Logger)

	walletHandler := wallet.NewHandler(walletSvc)
	orderHandler := installment.NewHandler(installmentSvc)
	chargeHandler := charge.NewHandler(chargeStore, queue)
	webhookHandler := webhook.NewHandler(webhookStore)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterWalletRoutes(api, walletHandler)
	RegisterOrderRoutes(api, orderHandler)
	RegisterChargeRoutes(api, chargeHandler)
	RegisterWebhookRoutes(api, webhookHandler)

	return nil
}
