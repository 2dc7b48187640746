package config

const EnvPrefix = "boostcv"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "BOOSTCV_APP_ENV"
	EnvPort     = "BOOSTCV_APP_PORT"
	EnvDBDSN    = "BOOSTCV_DB_DSN"
	EnvDBHost   = "BOOSTCV_DB_HOST"
	EnvDBUser   = "BOOSTCV_DB_USER"
	EnvDBName   = "BOOSTCV_DB_NAME"
	EnvRedisURL = "BOOSTCV_REDIS_URL"

	EnvAsaasAPIKey       = "BOOSTCV_ASAAS_API_KEY"
	EnvAsaasBaseURL      = "BOOSTCV_ASAAS_BASE_URL"
	EnvAsaasWebhookToken = "BOOSTCV_ASAAS_WEBHOOK_TOKEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
