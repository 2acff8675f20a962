package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "STOREFRONT_APP_ENV"
	EnvPort         = "STOREFRONT_APP_PORT"
	EnvLogLevel     = "STOREFRONT_LOG_LEVEL"
	EnvLogWarnStack = "STOREFRONT_LOG_WARN_STACK"

	EnvDBDSN      = "STOREFRONT_DB_DSN"
	EnvDBHost     = "STOREFRONT_DB_HOST"
	EnvDBPort     = "STOREFRONT_DB_PORT"
	EnvDBUser     = "STOREFRONT_DB_USER"
	EnvDBPassword = "STOREFRONT_DB_PASSWORD"
	EnvDBName     = "STOREFRONT_DB_NAME"
	EnvDBSSLMode  = "STOREFRONT_DB_SSLMODE"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret              = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer              = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins             = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"

	EnvAutoMigrate = "STOREFRONT_AUTO_MIGRATE"

	EnvCartMaxLineQty     = "STOREFRONT_CART_MAX_LINE_QUANTITY"
	EnvCartIdempotencyTTL = "STOREFRONT_CART_IDEMPOTENCY_TTL"

	EnvClientAPIBaseURL = "STOREFRONT_CLIENT_API_BASE_URL"
	EnvClientTimeout    = "STOREFRONT_CLIENT_TIMEOUT"
	EnvClientGuestStore = "STOREFRONT_CLIENT_GUEST_STORE"
	EnvClientTokenFile  = "STOREFRONT_CLIENT_TOKEN_FILE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
