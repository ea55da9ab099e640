package config

const (
	// EnvPrefix is intentionally empty: every binding below carries the full
	// BRIGHTCART_ variable name so greps against deploy manifests match 1:1.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BRIGHTCART_DB_DSN"
	EnvDBHost = "BRIGHTCART_DB_HOST"
	EnvDBUser = "BRIGHTCART_DB_USER"
	EnvDBName = "BRIGHTCART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
