package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/Alijeyrad/mindcare_backend/config"
	"github.com/Alijeyrad/mindcare_backend/internal/api/http/handler"
	"github.com/Alijeyrad/mindcare_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/mindcare_backend/internal/service/actionlog"
	"github.com/Alijeyrad/mindcare_backend/internal/service/auth"
	"github.com/Alijeyrad/mindcare_backend/internal/service/notification"
	"github.com/Alijeyrad/mindcare_backend/internal/service/profile"
	"github.com/Alijeyrad/mindcare_backend/internal/service/report"
	"github.com/Alijeyrad/mindcare_backend/internal/service/session"
	"github.com/Alijeyrad/mindcare_backend/internal/service/user"
	"github.com/Alijeyrad/mindcare_backend/pkg/authorize"
	pasetotoken "github.com/Alijeyrad/mindcare_backend/pkg/paseto"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg             *config.Config
	Auth            authorize.IAuthorization
	UserSvc         user.Service
	AuthSvc         auth.Service
	SessionSvc      session.Service
	ProfileSvc      profile.Service
	ReportSvc       report.Service
	NotificationSvc notification.Service
	ActionLogSvc    actionlog.Service
	PasetoMgr       *pasetotoken.Manager
	// Ready reports whether the backing stores answer; nil means always.
	Ready func() bool `name:"readiness" optional:"true"`
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Initialize Middlewares
	authRequired := middleware.AuthRequired(r.p.PasetoMgr, r.p.AuthSvc)

	// Permission helper
	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	// 3. Initialize Handlers
	authH := handler.NewAuthHandler(r.p.AuthSvc, r.p.Cfg.Authentication.CookieSecure)
	userH := handler.NewUserHandler(r.p.UserSvc)
	sessionH := handler.NewSessionHandler(r.p.SessionSvc)
	profileH := handler.NewProfileHandler(r.p.ProfileSvc)
	reportH := handler.NewReportHandler(r.p.ReportSvc)
	notificationH := handler.NewNotificationHandler(r.p.NotificationSvc)
	actionLogH := handler.NewActionLogHandler(r.p.ActionLogSvc)

	api := app.Group("/api/v1")

	// 4. Delegate to sub-files
	r.registerAuthRoutes(api, authH, authRequired)
	r.registerUserRoutes(api, userH, authRequired, requirePerm)
	r.registerSessionRoutes(api, sessionH, reportH, authRequired, requirePerm)
	r.registerProfileRoutes(api, profileH, authRequired, requirePerm)
	r.registerReportRoutes(api, reportH, authRequired, requirePerm)
	r.registerNotificationRoutes(api, notificationH, authRequired)
	r.registerActionLogRoutes(api, actionLogH, authRequired, requirePerm)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			if r.p.Ready != nil && !r.p.Ready() {
				return false
			}
			return !r.p.Cfg.Authorization.HealthCheckEnabled || authorize.IsPolicyHealthy()
		},
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
