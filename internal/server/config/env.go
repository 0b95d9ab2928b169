package config

import "github.com/dmitrijs2005/securecloud/internal/flagx"

// Environment variables consulted by parseEnv. Secrets are usually injected
// this way rather than through flags, which show up in process listings.
const (
	EnvDatabaseDSN = "DATABASE_DSN"
	EnvSecretKey   = "SECRET_KEY"
	EnvVaultKey    = "VAULT_KEY"

	EnvSecureCookies = "SECURE_COOKIES"
)

func parseEnv(config *Config) {
	flagx.LookupEnv(&config.DatabaseDSN, EnvDatabaseDSN)
	flagx.LookupEnv(&config.SecretKey, EnvSecretKey)
	flagx.LookupEnv(&config.VaultKey, EnvVaultKey)
	if _, err := flagx.LookupEnvBool(&config.SecureCookies, EnvSecureCookies); err != nil {
		panic(err)
	}
}
