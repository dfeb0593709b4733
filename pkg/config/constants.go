package config

// EnvPrefix is intentionally empty: every field carries its fully qualified
// SALES_* variable name in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv     = "SALES_APP_ENV"
	EnvPort       = "SALES_APP_PORT"
	EnvDBDSN      = "SALES_DB_DSN"
	EnvDBHost     = "SALES_DB_HOST"
	EnvDBUser     = "SALES_DB_USER"
	EnvDBName     = "SALES_DB_NAME"
	EnvDBPassword = "SALES_DB_PASSWORD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
