package config

const (
	EnvPrefix = "POSPORTAL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "POSPORTAL_APP_ENV"
	EnvPort     = "POSPORTAL_APP_PORT"
	EnvDBDSN    = "POSPORTAL_DB_DSN"
	EnvDBHost   = "POSPORTAL_DB_HOST"
	EnvDBUser   = "POSPORTAL_DB_USER"
	EnvDBName   = "POSPORTAL_DB_NAME"
	EnvRedisURL = "POSPORTAL_REDIS_URL"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
