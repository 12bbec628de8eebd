package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/mindcare_backend/config"
	"github.com/Alijeyrad/mindcare_backend/internal/events"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
	"github.com/Alijeyrad/mindcare_backend/pkg/agent"
	"github.com/Alijeyrad/mindcare_backend/pkg/authorize"
	"github.com/Alijeyrad/mindcare_backend/pkg/crypto"
	"github.com/Alijeyrad/mindcare_backend/pkg/database"
	"github.com/Alijeyrad/mindcare_backend/pkg/email"
	"github.com/Alijeyrad/mindcare_backend/pkg/llm"
	"github.com/Alijeyrad/mindcare_backend/pkg/observability"
	redispkg "github.com/Alijeyrad/mindcare_backend/pkg/redis"
	"github.com/Alijeyrad/mindcare_backend/pkg/rtc"
	s3pkg "github.com/Alijeyrad/mindcare_backend/pkg/s3"
	"github.com/Alijeyrad/mindcare_backend/pkg/sms"
)

// InfraModule provides all infrastructure dependencies.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideAuthorization),
	fx.Provide(ProvideEmailClient),
	fx.Provide(ProvideSMSClient),
	fx.Provide(ProvideOTel),
	fx.Provide(ProvideS3Client),
	fx.Provide(ProvideRoomProvider),
	fx.Provide(ProvideAgentDispatcher),
	fx.Provide(ProvideLLMClient),
	fx.Provide(ProvideNatsClient),
	fx.Provide(ProvidePublisher),
	fx.Provide(fx.Annotate(ProvideReadiness, fx.ResultTags(`name:"readiness"`))),
)

func ProvideStore(lc fx.Lifecycle, cfg *config.Config) (*store.Client, error) {
	cipher, err := crypto.NewFieldCipher(cfg.Authentication.EncryptionKey)
	if err != nil {
		return nil, err
	}
	drv, err := database.NewDriver(cfg.Database)
	if err != nil {
		return nil, err
	}
	client := store.NewClient(drv, cipher)
	mig := database.FromCentralConfig(cfg.Database)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !mig.AutoMigrate {
				return nil
			}
			slog.Info("migrating database schema", "safe", mig.SafeMode)
			return client.Migrate(ctx, mig.SafeMode)
		},
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing main database connection")
			return client.Close()
		},
	})
	return client, nil
}

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	rdb, err := redispkg.NewRedisFromCentral(cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

func ProvideAuthorization(lc fx.Lifecycle, cfg *config.Config) (authorize.IAuthorization, error) {
	acfg := authorize.FromCentralConfig(cfg.Authorization)
	dsn := database.NewDSN(cfg.CasbinDatabase)
	enforcer, cleanup, err := authorize.NewEnforcer(acfg, dsn)
	if err != nil {
		return nil, err
	}
	auth, err := authorize.NewAuthorization(enforcer, acfg)
	if err != nil {
		cleanup(context.Background())
		return nil, err
	}
	if acfg.EnableAudit {
		auth = authorize.NewAuditedAuthorization(auth, slog.Default())
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("cleaning up Casbin enforcer")
			cleanup(ctx)
			return nil
		},
	})
	return auth, nil
}

func ProvideEmailClient(cfg *config.Config) (*email.Client, error) {
	return email.NewFromCentral(cfg.Email, cfg.Server.Domain)
}

func ProvideSMSClient(cfg *config.Config) (*sms.Client, error) {
	return sms.NewFromConfig(cfg.SMS)
}

func ProvideS3Client(cfg *config.Config) (*s3pkg.Client, error) {
	return s3pkg.New(cfg.S3)
}

func ProvideRoomProvider(cfg *config.Config) *rtc.Client {
	return rtc.New(cfg.RoomProvider)
}

func ProvideAgentDispatcher(cfg *config.Config) *agent.Client {
	return agent.New(cfg.AgentDispatcher)
}

func ProvideLLMClient(cfg *config.Config) *llm.Client {
	return llm.New(cfg.LLM)
}

func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.Nats.URL,
		nats.Name("mindcare"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

func ProvidePublisher(nc *nats.Conn) *events.Publisher {
	return events.NewPublisher(nc)
}

// ProvideReadiness reports whether the database, Redis and NATS are
// reachable. Policy health is checked by the router itself.
func ProvideReadiness(db *store.Client, rdb *redis.Client, nc *nats.Conn) func() bool {
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		var errs []error
		if err := db.Ping(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := redispkg.Ready(ctx, rdb); err != nil {
			errs = append(errs, err)
		}
		if !nc.IsConnected() {
			errs = append(errs, nats.ErrConnectionClosed)
		}
		if err := errors.Join(errs...); err != nil {
			slog.Warn("readiness probe failed", "error", err)
			return false
		}
		return true
	}
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.FromCentralConfig(cfg))
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}
