package models

import "time"

type AuditLogEntry struct {
	ID        string
	UserID    string
	Action    string
	Timestamp time.Time
}
