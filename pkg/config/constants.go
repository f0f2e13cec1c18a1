package config

// EnvPrefix namespaces every environment variable the engine reads.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "COUPONHIVE_DB_DSN"
	EnvDBHost = "COUPONHIVE_DB_HOST"
	EnvDBUser = "COUPONHIVE_DB_USER"
	EnvDBName = "COUPONHIVE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
