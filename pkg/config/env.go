package config

const EnvPrefix = "LAMA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	IdentityProviderFirebase = "firebase"
	IdentityProviderLocal    = "local"

	RoleSourceDirectory = "directory"
	RoleSourceClaims    = "claims"
)

// Environment variable names, exported for tests and tooling.
const (
	EnvAppEnv            = "LAMA_APP_ENV"
	EnvPort              = "LAMA_APP_PORT"
	EnvClientURL         = "LAMA_CLIENT_URL"
	EnvDBDSN             = "LAMA_DB_DSN"
	EnvDBDriver          = "LAMA_DB_DRIVER"
	EnvRedisURL          = "LAMA_REDIS_URL"
	EnvIdentityProvider  = "LAMA_IDENTITY_PROVIDER"
	EnvRoleSource        = "LAMA_ROLE_SOURCE"
	EnvFirebaseProjectID = "LAMA_FIREBASE_PROJECT_ID"
	EnvLocalJWTSecret    = "LAMA_LOCAL_JWT_SECRET"
	EnvImageKitPrivate   = "LAMA_IMAGE_KIT_PRIVATE_KEY"
	EnvReconcileInterval = "LAMA_RECONCILE_INTERVAL"
)
