package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/dbx"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/blobstore"
	"github.com/dmitrijs2005/securecloud/internal/server/metrics"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/repomanager"
)

const untitledFile = "untitled"

// FileService stores encrypted files: ciphertext in the blob store and
// metadata in encrypted_files.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       SessionGuard
	vault       Sealer
	blobs       blobstore.Store
	audit       *AuditService
	log         logging.Logger
	now         func() time.Time
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, guard SessionGuard, vault Sealer,
	blobs blobstore.Store, audit *AuditService, log logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		guard:       guard,
		vault:       vault,
		blobs:       blobs,
		audit:       audit,
		log:         log.With("module", "files"),
		now:         time.Now,
	}
}

// SaveFile encrypts data and stores it under a fresh storage key. The
// metadata row is inserted in a transaction that only commits once the
// object is written; if the commit fails the object is removed again.
func (s *FileService) SaveFile(ctx context.Context, userID, filename string, data []byte) (string, error) {
	if err := s.guard.RequireOwner(ctx, userID); err != nil {
		return "", err
	}

	name := CleanFilename(filename)

	ciphertext, err := s.vault.Encrypt(data)
	if err != nil {
		return "", err
	}

	key := blobstore.NewStorageKey(s.now().UTC())
	var (
		id     string
		stored bool
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		f, err := s.repomanager.Files(tx).Create(ctx, &models.File{
			UserID:     userID,
			Filename:   name,
			Size:       int64(len(data)),
			StorageKey: key,
		})
		if err != nil {
			return fmt.Errorf("error saving file: %w", err)
		}

		if err := s.blobs.Put(ctx, key, ciphertext); err != nil {
			return fmt.Errorf("error storing file: %w", err)
		}
		stored = true
		id = f.ID
		return nil
	})
	if err != nil {
		if stored {
			if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				s.log.Error(ctx, "orphaned file object", "storage_key", key, "error", delErr)
			}
		}
		return "", err
	}

	s.audit.Record(ctx, userID, ActionUploadedFile(name))
	return id, nil
}

// FetchFileForOwner returns the decrypted file if userID owns it.
func (s *FileService) FetchFileForOwner(ctx context.Context, userID, fileID string) (string, []byte, error) {
	if _, err := s.guard.RequireAuthenticated(ctx); err != nil {
		return "", nil, err
	}

	f, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return "", nil, err
	}

	if err := s.guard.RequireOwner(ctx, f.UserID); err != nil {
		return "", nil, err
	}
	if userID != f.UserID {
		return "", nil, common.ErrForbidden
	}

	ciphertext, err := s.blobs.Get(ctx, f.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "file object missing", "file_id", f.ID, "storage_key", f.StorageKey)
			return "", nil, common.ErrorInternal
		}
		return "", nil, fmt.Errorf("error loading file: %w", err)
	}

	data, err := s.vault.Decrypt(ciphertext)
	if err != nil {
		if errors.Is(err, common.ErrIntegrity) {
			metrics.IntegrityFailures.WithLabelValues("file").Inc()
			s.log.Error(ctx, "file failed integrity check", "file_id", f.ID)
		}
		return "", nil, err
	}

	s.audit.Record(ctx, userID, ActionDownloadedFile(f.Filename))
	return f.Filename, data, nil
}

// ListFiles returns the caller's file metadata; nothing is decrypted.
func (s *FileService) ListFiles(ctx context.Context, userID string) ([]*models.File, error) {
	if err := s.guard.RequireOwner(ctx, userID); err != nil {
		return nil, err
	}
	return s.repomanager.Files(s.db).ListByUser(ctx, userID)
}

// CleanFilename reduces a client-supplied name to its last path element.
// Empty and dot names become "untitled".
func CleanFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(path.Base(name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return untitledFile
	}
	return name
}
