// Package common contains shared constants and sentinel errors used across
// SecureCloud components.
package common

// SessionCookieName is the cookie that carries the session token for
// browser clients. API clients send the same token as a Bearer header.
const SessionCookieName = "session_token"

// AuthorizationHeaderName is the HTTP header inspected for Bearer tokens.
const AuthorizationHeaderName = "Authorization"
