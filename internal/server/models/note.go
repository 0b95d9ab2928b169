package models

import "time"

// Note is a stored secure note. Ciphertext is vault output only.
type Note struct {
	ID         string
	UserID     string
	Ciphertext []byte
	CreatedAt  time.Time
}
