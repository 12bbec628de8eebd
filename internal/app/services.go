package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/mindcare_backend/config"
	"github.com/Alijeyrad/mindcare_backend/internal/events"
	"github.com/Alijeyrad/mindcare_backend/internal/service/actionlog"
	"github.com/Alijeyrad/mindcare_backend/internal/service/auth"
	"github.com/Alijeyrad/mindcare_backend/internal/service/notification"
	"github.com/Alijeyrad/mindcare_backend/internal/service/profile"
	"github.com/Alijeyrad/mindcare_backend/internal/service/report"
	"github.com/Alijeyrad/mindcare_backend/internal/service/session"
	"github.com/Alijeyrad/mindcare_backend/internal/service/user"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
	"github.com/Alijeyrad/mindcare_backend/pkg/agent"
	"github.com/Alijeyrad/mindcare_backend/pkg/authorize"
	"github.com/Alijeyrad/mindcare_backend/pkg/email"
	"github.com/Alijeyrad/mindcare_backend/pkg/llm"
	pasetotoken "github.com/Alijeyrad/mindcare_backend/pkg/paseto"
	"github.com/Alijeyrad/mindcare_backend/pkg/rtc"
	s3pkg "github.com/Alijeyrad/mindcare_backend/pkg/s3"
	"github.com/Alijeyrad/mindcare_backend/pkg/sms"
	"github.com/Alijeyrad/mindcare_backend/pkg/util/password"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideActionLogService,
		ProvideUserService,
		ProvideAuthService,
		ProvideProfileService,
		ProvideSessionService,
		ProvideReportService,
		ProvideNotificationService,
		ProvideDelivery,
		ProvidePasetoManager,
		ProvidePasswordParams,
	),
)

func ProvideActionLogService(db *store.Client) actionlog.Service {
	return actionlog.New(db.ActionLogs)
}

func ProvideUserService(
	db *store.Client,
	authz authorize.IAuthorization,
	actions actionlog.Service,
	params *password.Params,
	cfg *config.Config,
) user.Service {
	return user.New(db.Users, authz, actions, user.Config{
		PhoneRegion:    cfg.SMS.DefaultRegion,
		PasswordParams: params,
	})
}

func ProvideAuthService(
	db *store.Client,
	users user.Service,
	rdb *redis.Client,
	paseto *pasetotoken.Manager,
	params *password.Params,
	cfg *config.Config,
) auth.Service {
	return auth.New(db.Users, users, auth.NewRedisCache(rdb), paseto, auth.Config{
		MaxLoginAttempts: cfg.Authentication.MaxLoginAttempts,
		Lockout:          time.Duration(cfg.Authentication.LockoutMinutes) * time.Minute,
		PasswordParams:   params,
	})
}

func ProvideProfileService(db *store.Client, actions actionlog.Service) profile.Service {
	return profile.New(db.Profiles, db.Users, actions)
}

type SessionParams struct {
	fx.In

	Lc      fx.Lifecycle
	Cfg     *config.Config
	DB      *store.Client
	Rooms   *rtc.Client
	Agents  *agent.Client
	Events  *events.Publisher
	Actions actionlog.Service
	Archive *s3pkg.Client
}

func ProvideSessionService(p SessionParams) session.Service {
	svc := session.New(session.Deps{
		Users:    p.DB.Users,
		Sessions: p.DB.Sessions,
		Profiles: p.DB.Profiles,
		Rooms:    p.Rooms,
		Agents:   p.Agents,
		Events:   p.Events,
		Actions:  p.Actions,
		Archive:  p.Archive,
	}, session.Config{
		EagerProvision:     p.Cfg.Session.EagerProvision,
		MaxParticipants:    p.Cfg.Session.MaxParticipants,
		RoomEmptyTimeout:   time.Duration(p.Cfg.Session.RoomEmptyTimeoutSeconds) * time.Second,
		TranscriptMaxBytes: p.Cfg.Session.TranscriptMaxBytes,
	})
	p.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return svc.Drain(ctx)
		},
	})
	return svc
}

func ProvideReportService(
	db *store.Client,
	summarizer *llm.Client,
	transcripts *s3pkg.Client,
	pub *events.Publisher,
	actions actionlog.Service,
) report.Service {
	return report.New(report.Deps{
		Reports:     db.Reports,
		Sessions:    db.Sessions,
		Summarizer:  summarizer,
		Transcripts: transcripts,
		Events:      pub,
		Actions:     actions,
	})
}

func ProvideNotificationService(db *store.Client) notification.Service {
	return notification.New(db.Notifications)
}

func ProvideDelivery(mail *email.Client, texter *sms.Client, cfg *config.Config) *notification.Delivery {
	return notification.NewDelivery(mail, texter, notification.DeliveryConfig{
		BaseURL: mail.Config().BaseURL,
		Region:  cfg.SMS.DefaultRegion,
	})
}

func ProvidePasswordParams(cfg *config.Config) *password.Params {
	return password.FromCentralConfig(cfg.Password)
}

func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	return pasetotoken.NewPasetoManager(cfg)
}
