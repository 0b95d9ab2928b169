// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account. PasswordHash is a PHC-encoded argon2id
// string and never leaves the server.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
