package models

import "time"

// File describes an uploaded file. The encrypted content itself is stored in
// object storage under StorageKey; Size is the plaintext length.
type File struct {
	ID         string
	UserID     string
	Filename   string
	Size       int64
	StorageKey string
	CreatedAt  time.Time
}
