package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "FULFILL"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "FULFILL_APP_ENV"
	EnvDBDSN  = "FULFILL_DB_DSN"
	EnvDBHost = "FULFILL_DB_HOST"
	EnvDBUser = "FULFILL_DB_USER"
	EnvDBName = "FULFILL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
