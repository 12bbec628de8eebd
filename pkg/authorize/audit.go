package authorize

import (
	"context"
	"log/slog"
	"time"

	"github.com/Alijeyrad/mindcare_backend/pkg/reqctx"
)

// AuditedAuthorization logs every decision and every role or permission
// change made through the wrapped IAuthorization. Allowed checks are logged
// at debug level; denials and errors are always visible.
type AuditedAuthorization struct {
	inner  IAuthorization
	logger *slog.Logger
}

func NewAuditedAuthorization(inner IAuthorization, logger *slog.Logger) IAuthorization {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditedAuthorization{inner: inner, logger: logger.With("component", "authz")}
}

func (a *AuditedAuthorization) Enforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error) {
	start := time.Now()
	allowed, err := a.inner.Enforce(ctx, subject, domain, object, action)

	level := slog.LevelDebug
	switch {
	case err != nil:
		level = slog.LevelError
	case !allowed:
		level = slog.LevelWarn
	}
	a.log(ctx, level, "authz decision", err,
		"subject", subject,
		"domain", domain,
		"resource", object,
		"action", action,
		"allowed", allowed,
		"took", time.Since(start),
	)
	return allowed, err
}

func (a *AuditedAuthorization) MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error {
	return mustEnforce(ctx, a, subject, domain, object, action)
}

func (a *AuditedAuthorization) AddRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	changed, err := a.inner.AddRoleForUserInDomain(ctx, subject, role, domain)
	a.change(ctx, "role granted", err, "subject", subject, "role", role, "domain", domain, "changed", changed)
	return changed, err
}

func (a *AuditedAuthorization) RemoveRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	changed, err := a.inner.RemoveRoleForUserInDomain(ctx, subject, role, domain)
	a.change(ctx, "role revoked", err, "subject", subject, "role", role, "domain", domain, "changed", changed)
	return changed, err
}

func (a *AuditedAuthorization) GetRolesForUserInDomain(ctx context.Context, subject GroupSubject, domain Domain) ([]Role, error) {
	return a.inner.GetRolesForUserInDomain(ctx, subject, domain)
}

func (a *AuditedAuthorization) AddPermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	changed, err := a.inner.AddPermission(ctx, role, domain, object, action, effect)
	a.change(ctx, "permission added", err,
		"role", role, "domain", domain, "resource", object, "action", action, "effect", effect, "changed", changed)
	return changed, err
}

func (a *AuditedAuthorization) change(ctx context.Context, msg string, err error, args ...any) {
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	a.log(ctx, level, msg, err, args...)
}

func (a *AuditedAuthorization) log(ctx context.Context, level slog.Level, msg string, err error, args ...any) {
	if !a.logger.Enabled(ctx, level) {
		return
	}
	args = append(args, reqctx.LogArgs(ctx)...)
	if err != nil {
		args = append(args, "err", err)
	}
	a.logger.Log(ctx, level, msg, args...)
}
