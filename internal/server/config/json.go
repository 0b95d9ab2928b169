package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/securecloud/internal/flagx"
	"github.com/dmitrijs2005/securecloud/internal/timex"
)

// JsonConfig is the on-disk shape of the optional config file. Durations
// use timex.Duration so both "12h" and integer nanoseconds are accepted.
// Only fields present in the file override earlier values.
type JsonConfig struct {
	EndpointAddrHTTP        string          `json:"endpoint_addr_http"`
	DatabaseDSN             string          `json:"database_dsn"`
	SecretKey               string          `json:"secret_key"`
	SessionValidityDuration *timex.Duration `json:"session_validity_duration"`
	SessionCacheSize        int             `json:"session_cache_size"`
	VaultKey                string          `json:"vault_key"`
	RequireVault            *bool           `json:"require_vault"`
	BlobStore               string          `json:"blob_store"`
	S3RootUser              string          `json:"s3_root_user"`
	S3RootPassword          string          `json:"s3_root_password"`
	S3Bucket                string          `json:"s3_bucket"`
	S3Region                string          `json:"s3_region"`
	S3BaseEndpoint          string          `json:"s3_base_endpoint"`
	AllowedOrigins          []string        `json:"allowed_origins"`
	SecureCookies           *bool           `json:"secure_cookies"`
	LogLevel                string          `json:"log_level"`
}

// parseJson loads the file named by -c/-config (if any) into config.
// A missing or invalid file panics: a misconfigured server must not start.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigFileFlag(args)
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.SessionValidityDuration != nil {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	if c.SessionCacheSize > 0 {
		config.SessionCacheSize = c.SessionCacheSize
	}
	setString(&config.VaultKey, c.VaultKey)
	if c.RequireVault != nil {
		config.RequireVault = *c.RequireVault
	}
	setString(&config.BlobStore, c.BlobStore)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if c.SecureCookies != nil {
		config.SecureCookies = *c.SecureCookies
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
