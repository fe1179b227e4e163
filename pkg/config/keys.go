package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "beanvault"

const (
	AppEnvDev     = "dev"
	AppEnvStaging = "staging"
	AppEnvProd    = "prod"
)

// Environment variable names shared by config loading, tests and the migrate CLI.
const (
	EnvAppEnv   = "BEANVAULT_APP_ENV"
	EnvPort     = "BEANVAULT_APP_PORT"
	EnvLogLevel = "BEANVAULT_LOG_LEVEL"

	EnvDBDSN  = "BEANVAULT_DB_DSN"
	EnvDBHost = "BEANVAULT_DB_HOST"
	EnvDBUser = "BEANVAULT_DB_USER"
	EnvDBName = "BEANVAULT_DB_NAME"

	EnvStripeAPIKey        = "BEANVAULT_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "BEANVAULT_STRIPE_WEBHOOK_SECRET"

	EnvSendgridAPIKey = "BEANVAULT_SENDGRID_API_KEY"
	EnvAdminEmail     = "BEANVAULT_MAIL_ADMIN_EMAIL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
