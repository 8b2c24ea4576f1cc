package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "RENTAL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "RENTAL_APP_ENV"
	EnvPort           = "RENTAL_APP_PORT"
	EnvLogLevel       = "RENTAL_LOG_LEVEL"
	EnvDBDSN          = "RENTAL_DB_DSN"
	EnvDBHost         = "RENTAL_DB_HOST"
	EnvDBUser         = "RENTAL_DB_USER"
	EnvDBName         = "RENTAL_DB_NAME"
	EnvRedisURL       = "RENTAL_REDIS_URL"
	EnvIdentityURL    = "RENTAL_IDENTITY_BASE_URL"
	EnvRollupSchedule = "RENTAL_ROLLUP_SCHEDULE"
	EnvRollupTimezone = "RENTAL_ROLLUP_TIMEZONE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
