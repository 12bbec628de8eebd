package http

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/Alijeyrad/mindcare_backend/config"
	"github.com/Alijeyrad/mindcare_backend/internal/api/http/router"
	"github.com/Alijeyrad/mindcare_backend/internal/app"
)

// Start runs the API server and the event workers until a termination
// signal arrives.
func Start(cfg *config.Config, timeout time.Duration) {
	fx.New(
		fx.Supply(cfg),
		app.InfraModule,
		app.ServiceModule,
		app.WorkerModule,
		router.Module,
		Module,

		// NewServer is only built when something depends on *fiber.App.
		fx.Invoke(func(*fiber.App) {}),

		fx.StopTimeout(timeout),
		fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),
	).Run()
}
