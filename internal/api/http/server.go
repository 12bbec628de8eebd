package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/mindcare_backend/config"
	"github.com/Alijeyrad/mindcare_backend/internal/api/http/handler"
	"github.com/Alijeyrad/mindcare_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/mindcare_backend/internal/api/http/router"
	"github.com/Alijeyrad/mindcare_backend/pkg/observability"
)

// Module provides the HTTP Server to the fx graph.
var Module = fx.Module("http", fx.Provide(NewServer))

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	Redis     *redis.Client
	Router    *router.Router
	OTel      *observability.Provider `optional:"true"`
}

func NewServer(p Params) *fiber.App {
	fcfg := fiber.Config{
		AppName:      "mindcare",
		ErrorHandler: handler.ErrorHandler,
	}
	if t := p.Cfg.Server.TimeoutSeconds; t > 0 {
		fcfg.ReadTimeout = time.Duration(t) * time.Second
		fcfg.WriteTimeout = time.Duration(t) * time.Second
	}
	app := fiber.New(fcfg)

	if p.OTel != nil && p.Cfg.Observability.Tracing.Enabled {
		app.Use(observability.FiberMiddleware(p.Cfg.Observability.ServiceName, "/livez", "/readyz", "/startupz", "/metrics"))
	}

	configureGlobalMiddleware(app, p.Cfg, p.Redis)

	p.Router.Register(app)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			addr := fmt.Sprintf(":%d", p.Cfg.Server.Port)
			go func() {
				if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
					slog.Error("HTTP server error", "error", err)
				}
			}()
			slog.Info("HTTP server listening", "addr", addr, "env", p.Cfg.Server.Environment)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})

	return app
}

func configureGlobalMiddleware(app *fiber.App, cfg *config.Config, rdb *redis.Client) {
	app.Use(middleware.RequestID())
	app.Use(recoverer.New())

	if cfg.Server.CORS.Enabled {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.CORS.AllowOrigins,
			AllowMethods:     cfg.Server.CORS.AllowMethods,
			AllowHeaders:     cfg.Server.CORS.AllowHeaders,
			ExposeHeaders:    cfg.Server.CORS.ExposeHeaders,
			AllowCredentials: cfg.Server.CORS.AllowCredentials,
			MaxAge:           cfg.Server.CORS.MaxAgeSeconds,
		}))
	}

	if cfg.Server.Environment == "production" {
		app.Use(helmet.New())
		app.Use(middleware.NewLimiterWithRedis(rdb, cfg.Server.RateLimit.RequestsPerMinute))
	}

	app.Use(logger.New(logger.Config{
		Format: "${ip} - [${time}] [req_id=${respHeader:X-Request-ID}] ${method} ${url} ${status} ${latency}\n",
	}))
}
