package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/metrics"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/repomanager"
)

// Audit actions. File actions carry the display name of the file.
const (
	ActionLoggedIn    = "Logged in"
	ActionLoggedOut   = "Logged out"
	ActionCreatedNote = "Created note"
)

func ActionUploadedFile(name string) string   { return "Uploaded file " + name }
func ActionDownloadedFile(name string) string { return "Downloaded file " + name }

// AuditService appends to and reads the per-user audit trail.
type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       SessionGuard
	log         logging.Logger
}

func NewAuditService(db *sql.DB, m repomanager.RepositoryManager, guard SessionGuard, log logging.Logger) *AuditService {
	return &AuditService{
		db:          db,
		repomanager: m,
		guard:       guard,
		log:         log.With("module", "audit"),
	}
}

// Record appends an entry for userID. It never fails the caller: a lost
// entry is logged at error level and counted in
// securecloud_audit_record_failures_total.
func (s *AuditService) Record(ctx context.Context, userID, action string) {
	// the action already happened even if the client has gone away
	ctx = context.WithoutCancel(ctx)

	repo := s.repomanager.AuditLogs(s.db)
	if err := repo.Create(ctx, &models.AuditLogEntry{UserID: userID, Action: action}); err != nil {
		metrics.AuditRecordFailures.Inc()
		s.log.Error(ctx, "audit record failed", "user_id", userID, "action", action, "error", err)
	}
}

// List returns userID's audit trail, oldest first. Only the owner may read it.
func (s *AuditService) List(ctx context.Context, userID string) ([]*models.AuditLogEntry, error) {
	if err := s.guard.RequireOwner(ctx, userID); err != nil {
		return nil, err
	}
	return s.repomanager.AuditLogs(s.db).ListByUser(ctx, userID)
}
