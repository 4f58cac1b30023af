package config

const (
	EnvPrefix = "REPAIRSHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv  = "REPAIRSHOP_APP_ENV"
	EnvPort    = "REPAIRSHOP_APP_PORT"
	EnvLogLvl  = "REPAIRSHOP_LOG_LEVEL"
	EnvSvcKind = "REPAIRSHOP_SERVICE_KIND"

	EnvDBDSN  = "REPAIRSHOP_DB_DSN"
	EnvDBHost = "REPAIRSHOP_DB_HOST"
	EnvDBUser = "REPAIRSHOP_DB_USER"
	EnvDBName = "REPAIRSHOP_DB_NAME"

	EnvRedisURL = "REPAIRSHOP_REDIS_URL"

	EnvJWTSecret              = "REPAIRSHOP_JWT_SECRET"
	EnvJWTIssuer              = "REPAIRSHOP_JWT_ISSUER"
	EnvJWTExpMins             = "REPAIRSHOP_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "REPAIRSHOP_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "REPAIRSHOP_GCP_PROJECT_ID"
	EnvGCSBucket    = "REPAIRSHOP_GCS_BUCKET_NAME"

	EnvPubSubSalesTopic         = "REPAIRSHOP_PUBSUB_SALES_TOPIC"
	EnvPubSubSalesSub           = "REPAIRSHOP_PUBSUB_SALES_SUBSCRIPTION"
	EnvPubSubNotificationsTopic = "REPAIRSHOP_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationsSub   = "REPAIRSHOP_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvPrinterAddr   = "REPAIRSHOP_PRINTER_ADDR"
	EnvInvoicePrefix = "REPAIRSHOP_INVOICE_PREFIX"
	EnvCartTTL       = "REPAIRSHOP_CART_TTL"
)

// legacyDBEnvVars must all be present when no DSN is supplied.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
