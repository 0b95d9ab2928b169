package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/metrics"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/repomanager"
)

// NoteService stores and lists encrypted notes.
type NoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       SessionGuard
	vault       Sealer
	audit       *AuditService
	log         logging.Logger
}

func NewNoteService(db *sql.DB, m repomanager.RepositoryManager, guard SessionGuard, vault Sealer, audit *AuditService, log logging.Logger) *NoteService {
	return &NoteService{
		db:          db,
		repomanager: m,
		guard:       guard,
		vault:       vault,
		audit:       audit,
		log:         log.With("module", "notes"),
	}
}

// SaveNote encrypts plaintext and stores it for userID.
func (s *NoteService) SaveNote(ctx context.Context, userID, plaintext string) (string, error) {
	if err := s.guard.RequireOwner(ctx, userID); err != nil {
		return "", err
	}

	ciphertext, err := s.vault.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}

	note, err := s.repomanager.Notes(s.db).Create(ctx, &models.Note{UserID: userID, Ciphertext: ciphertext})
	if err != nil {
		return "", fmt.Errorf("error saving note: %w", err)
	}

	s.audit.Record(ctx, userID, ActionCreatedNote)
	return note.ID, nil
}

// ListNotes returns the user's notes decrypted, in insertion order. If any
// note fails to decrypt the whole listing fails with common.ErrIntegrity.
func (s *NoteService) ListNotes(ctx context.Context, userID string) ([]string, error) {
	if err := s.guard.RequireOwner(ctx, userID); err != nil {
		return nil, err
	}

	notes, err := s.repomanager.Notes(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing notes: %w", err)
	}

	result := make([]string, 0, len(notes))
	for _, n := range notes {
		plain, err := s.vault.Decrypt(n.Ciphertext)
		if err != nil {
			if errors.Is(err, common.ErrIntegrity) {
				metrics.IntegrityFailures.WithLabelValues("note").Inc()
				s.log.Error(ctx, "note failed integrity check", "note_id", n.ID, "user_id", userID)
			}
			return nil, err
		}
		result = append(result, string(plain))
	}
	return result, nil
}
