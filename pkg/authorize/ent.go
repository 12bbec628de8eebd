package authorize

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	psqlwatcher "github.com/IguteChung/casbin-psql-watcher"
	casbin "github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	entadapter "github.com/casbin/ent-adapter"
)

// policyChannel is the Postgres NOTIFY channel replicas use to announce
// policy writes.
const policyChannel = "mindcare_policy_update"

// reloadFailed is set when a watcher-triggered reload fails and cleared by
// the next successful one. The enforcer keeps serving the last good policy
// meanwhile, so readiness is what reports it.
var reloadFailed atomic.Bool

// IsPolicyHealthy reports whether the last policy reload succeeded.
func IsPolicyHealthy() bool { return !reloadFailed.Load() }

// CleanupFunc stops background policy sync.
type CleanupFunc func(ctx context.Context)

// LoadModel reads the model file at path, or DefaultModel when path is empty.
func LoadModel(path string) (model.Model, error) {
	if path == "" {
		return model.NewModelFromString(DefaultModel)
	}
	return model.NewModelFromFile(path)
}

// NewEnforcer opens the casbin_rule table through the ent adapter. Writes are
// saved immediately. With PolicySyncEnabled every write is also announced on
// policyChannel and other replicas reload on notification.
func NewEnforcer(cfg Config, dsn string) (*casbin.DistributedEnforcer, CleanupFunc, error) {
	m, err := LoadModel(cfg.CasbinModelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("casbin model: %w", err)
	}
	adapter, err := entadapter.NewAdapter("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("casbin adapter: %w", err)
	}
	e, err := casbin.NewDistributedEnforcer(m, adapter)
	if err != nil {
		return nil, nil, fmt.Errorf("casbin enforcer: %w", err)
	}
	e.EnableAutoSave(true)

	if !cfg.PolicySyncEnabled {
		return e, func(context.Context) {}, nil
	}

	w, err := psqlwatcher.NewWatcherWithConnString(context.Background(), dsn, psqlwatcher.Option{Channel: policyChannel})
	if err != nil {
		return nil, nil, fmt.Errorf("casbin watcher: %w", err)
	}
	reload := func(string) {
		if err := e.LoadPolicy(); err != nil {
			slog.Error("authz: policy reload failed", "err", err)
			reloadFailed.Store(true)
			return
		}
		reloadFailed.Store(false)
	}
	if err := w.SetUpdateCallback(reload); err != nil {
		w.Close()
		return nil, nil, err
	}
	if err := e.SetWatcher(w); err != nil {
		w.Close()
		return nil, nil, err
	}

	return e, func(context.Context) { w.Close() }, nil
}
