package constants

const (
	AppName = "mindcare"

	ConfigName   = "config"
	ConfigFormat = "yaml"

	// EnvPrefix scopes environment overrides, e.g. MINDCARE_SERVER_PORT.
	EnvPrefix = "MINDCARE"
)
