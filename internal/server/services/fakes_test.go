package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/cryptox"
	"github.com/dmitrijs2005/securecloud/internal/dbx"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/auth"
	"github.com/dmitrijs2005/securecloud/internal/server/blobstore"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/files"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/notes"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var testParams = cryptox.Argon2Params{Time: 1, MemoryKiB: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// --- in-memory repositories ---

type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	notes    []*models.Note
	files    map[string]*models.File
	audit    []*models.AuditLogEntry
	sessions map[string]*models.Session

	// failure injection
	createUserErr error
	existsErr     error
	noteErr       error
	fileErr       error
	auditErr      error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		files:    map[string]*models.File{},
		sessions: map[string]*models.Session{},
	}
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createUserErr != nil {
		return nil, r.s.createUserErr
	}
	for _, other := range r.s.users {
		if other.UserName == u.UserName {
			return nil, fmt.Errorf("db error: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_key"})
		}
		if other.Email == u.Email {
			return nil, fmt.Errorf("db error: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	cp := *u
	r.s.users[u.ID] = &cp
	return u, nil
}

func (r memUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.UserName == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) ExistsByUserName(_ context.Context, login string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.existsErr != nil {
		return false, r.s.existsErr
	}
	for _, u := range r.s.users {
		if u.UserName == login {
			return true, nil
		}
	}
	return false, nil
}

func (r memUsers) List(_ context.Context) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.User
	for _, u := range r.s.users {
		out = append(out, &models.User{ID: u.ID, UserName: u.UserName, Email: u.Email, CreatedAt: u.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

type memNotes struct{ s *memStore }

func (r memNotes) Create(_ context.Context, n *models.Note) (*models.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.noteErr != nil {
		return nil, r.s.noteErr
	}
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now()
	cp := *n
	r.s.notes = append(r.s.notes, &cp)
	return n, nil
}

func (r memNotes) ListByUser(_ context.Context, userID string) ([]*models.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Note
	for _, n := range r.s.notes {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memFiles struct{ s *memStore }

func (r memFiles) Create(_ context.Context, f *models.File) (*models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.fileErr != nil {
		return nil, r.s.fileErr
	}
	f.ID = uuid.NewString()
	f.CreatedAt = time.Now().UTC()
	cp := *f
	r.s.files[f.ID] = &cp
	return f, nil
}

func (r memFiles) GetByID(_ context.Context, id string) (*models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (r memFiles) ListByUser(_ context.Context, userID string) ([]*models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.File
	for _, f := range r.s.files {
		if f.UserID == userID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memAudit struct{ s *memStore }

func (r memAudit) Create(_ context.Context, e *models.AuditLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.auditErr != nil {
		return r.s.auditErr
	}
	e.ID = uuid.NewString()
	e.Timestamp = time.Now().UTC()
	cp := *e
	r.s.audit = append(r.s.audit, &cp)
	return nil
}

func (r memAudit) ListByUser(_ context.Context, userID string) ([]*models.AuditLogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.AuditLogEntry
	for _, e := range r.s.audit {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memSessions struct{ s *memStore }

func (r memSessions) Create(_ context.Context, sess *models.Session) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess.ID = uuid.NewString()
	sess.CreatedAt = time.Now()
	cp := *sess
	r.s.sessions[sess.ID] = &cp
	return sess, nil
}

func (r memSessions) GetByID(_ context.Context, id string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *sess
	return &cp, nil
}

func (r memSessions) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

func (r memSessions) DeleteExpired(context.Context, time.Time) (int64, error) { return 0, nil }

// auditActions returns the recorded actions for userID in order.
func (m *memStore) auditActions(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.audit {
		if e.UserID == userID {
			out = append(out, e.Action)
		}
	}
	return out
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return memUsers{m.s} }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository        { return memSessions{m.s} }
func (m *fakeRepoManager) Notes(dbx.DBTX) notes.Repository              { return memNotes{m.s} }
func (m *fakeRepoManager) Files(dbx.DBTX) files.Repository              { return memFiles{m.s} }
func (m *fakeRepoManager) AuditLogs(dbx.DBTX) auditlogs.Repository      { return memAudit{m.s} }

// --- wiring ---

type testEnv struct {
	store *memStore
	blobs *blobstore.MemoryStore
	vault *cryptox.Vault
	guard *auth.Guard
	audit *AuditService
	users *UserService
	notes *NoteService
	files *FileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	vault, err := cryptox.NewVault(cryptox.GenerateVaultKey())
	require.NoError(t, err)

	return newTestEnvWithVault(t, db, vault)
}

func newTestEnvWithVault(t *testing.T, db *sql.DB, vault *cryptox.Vault) *testEnv {
	t.Helper()

	st := newMemStore()
	rm := &fakeRepoManager{s: st}
	log := logging.Nop{}

	guard := auth.NewGuard(memSessions{st}, []byte("test-secret"), time.Hour, 64, log)
	audit := NewAuditService(db, rm, guard, log)
	us := NewUserService(db, rm, guard, audit, log)
	us.params = testParams
	blobs := blobstore.NewMemoryStore()

	return &testEnv{
		store: st,
		blobs: blobs,
		vault: vault,
		guard: guard,
		audit: audit,
		users: us,
		notes: NewNoteService(db, rm, guard, vault, audit, log),
		files: NewFileService(db, rm, guard, vault, blobs, audit, log),
	}
}

// register creates a user and returns an authenticated context for them,
// going through Login and Guard.Authenticate like a real request.
func (e *testEnv) register(t *testing.T, username, email, password string) (context.Context, *models.User) {
	t.Helper()
	ctx := context.Background()

	u, err := e.users.Register(ctx, username, email, password)
	require.NoError(t, err)

	res, err := e.users.Login(ctx, username, password)
	require.NoError(t, err)

	uid, err := e.guard.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, uid)

	return auth.WithUserID(ctx, uid), u
}

var errBoom = errors.New("boom")
