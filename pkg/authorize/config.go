package authorize

import "github.com/Alijeyrad/mindcare_backend/config"

type Config struct {
	// CasbinModelPath falls back to DefaultModel when empty.
	CasbinModelPath string
	// EnableAudit wraps the enforcer in AuditedAuthorization.
	EnableAudit      bool
	SuperadminBypass bool
	// PolicySyncEnabled starts a LISTEN/NOTIFY watcher so policy written by
	// one API replica reaches the others.
	PolicySyncEnabled bool
	// HealthCheckEnabled makes /readyz fail after a failed policy reload.
	HealthCheckEnabled bool
}

func FromCentralConfig(c config.AuthorizationConfig) Config {
	return Config(c)
}
