package config

import (
	"flag"
	"strings"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s", "-t", "-k", "-require-vault", "-blob-store",
	"-u", "-p", "-b", "-g", "-e", "-o", "-secure-cookies", "-l",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          HTTP bind address (e.g., ":8080")
//	-d string          PostgreSQL DSN
//	-s string          JWT HMAC secret key
//	-t int             session validity, minutes
//	-k string          vault key (base64, 32 bytes)
//	-require-vault     fail startup on a missing/malformed vault key (use -require-vault=false to relax)
//	-blob-store string "s3" or "memory"
//	-u string          S3 root user
//	-p string          S3 root password
//	-b string          S3 bucket name
//	-g string          S3 region
//	-e string          S3 base endpoint
//	-o string          comma-separated CORS origins
//	-secure-cookies    set the Secure attribute on the session cookie
//	-l string          log level
//
// Unknown arguments are filtered out first so other components may define
// their own flags. Invalid values panic, like the JSON loader.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity duration (in minutes)")
	fs.StringVar(&config.VaultKey, "k", config.VaultKey, "vault key")
	fs.BoolVar(&config.RequireVault, "require-vault", config.RequireVault, "refuse to start without a valid vault key")
	fs.StringVar(&config.BlobStore, "blob-store", config.BlobStore, "blob store backend (s3, memory)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "allowed CORS origins, comma separated")
	fs.BoolVar(&config.SecureCookies, "secure-cookies", config.SecureCookies, "mark the session cookie Secure (HTTPS only)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
	config.AllowedOrigins = splitList(*origins)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
