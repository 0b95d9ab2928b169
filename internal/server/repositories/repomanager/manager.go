package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/securecloud/internal/dbx"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/files"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/notes"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Notes(db dbx.DBTX) notes.Repository
	Files(db dbx.DBTX) files.Repository
	AuditLogs(db dbx.DBTX) auditlogs.Repository
}
