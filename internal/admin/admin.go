// Package admin implements the operator commands shipped as cmd/admin:
// key generation, schema migration and inspection, and account seeding.
package admin

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/cryptox"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/auth"
	"github.com/dmitrijs2005/securecloud/internal/server/config"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/securecloud/internal/server/services"
	"github.com/fatih/color"
	"golang.org/x/term"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrUsage is returned for an unknown or missing subcommand.
var ErrUsage = errors.New("usage: admin <keygen|migrate|verify-db|seed-user|list-users> [flags]")

// ErrSchemaIncomplete is returned by verify-db when tables are missing.
var ErrSchemaIncomplete = errors.New("schema is incomplete")

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type Runner struct {
	cfg     *config.Config
	in      *bufio.Reader
	out     io.Writer
	log     logging.Logger
	manager repomanager.RepositoryManager
	openDB  func(dsn string) (*sql.DB, error)
}

func NewRunner(cfg *config.Config, in io.Reader, out io.Writer, log logging.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		in:      bufio.NewReader(in),
		out:     out,
		log:     log.With("module", "admin"),
		manager: repomanager.NewPostgresRepositoryManager(),
		openDB:  func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) },
	}
}

// Run executes the subcommand named by args[0]. Remaining arguments are
// server config flags and have already been applied to the config.
func (r *Runner) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch args[0] {
	case "keygen":
		_, err := fmt.Fprintln(r.out, cryptox.GenerateVaultKey())
		return err
	case "migrate":
		return r.withDB(ctx, r.migrate)
	case "verify-db":
		return r.withDB(ctx, r.verifyDB)
	case "seed-user":
		return r.withDB(ctx, r.seedUser)
	case "list-users":
		return r.withDB(ctx, r.listUsers)
	case "help", "-h", "--help":
		_, err := fmt.Fprintln(r.out, ErrUsage.Error())
		return err
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func (r *Runner) withDB(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	db, err := r.openDB(r.cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return fn(ctx, db)
}

func (r *Runner) migrate(ctx context.Context, db *sql.DB) error {
	if err := r.manager.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	r.log.Info(ctx, "migrations applied")
	_, err := fmt.Fprintln(r.out, "migrations applied")
	return err
}

func (r *Runner) verifyDB(ctx context.Context, db *sql.DB) error {
	missing, err := repomanager.MissingTables(ctx, db)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	absent := make(map[string]bool, len(missing))
	for _, m := range missing {
		absent[m] = true
	}
	for _, t := range repomanager.Tables {
		status := color.GreenString("ok")
		if absent[t] {
			status = color.RedString("missing")
		}
		fmt.Fprintf(r.out, "%-16s %s\n", t, status)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrSchemaIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

func (r *Runner) userService(db *sql.DB) *services.UserService {
	guard := auth.NewGuard(r.manager.Sessions(db), []byte(r.cfg.SecretKey),
		r.cfg.SessionValidityDuration, r.cfg.SessionCacheSize, r.log)
	audit := services.NewAuditService(db, r.manager, guard, r.log)
	return services.NewUserService(db, r.manager, guard, audit, r.log)
}

func (r *Runner) seedUser(ctx context.Context, db *sql.DB) error {
	username, err := r.prompt("Username")
	if err != nil {
		return err
	}
	email, err := r.prompt("Email")
	if err != nil {
		return err
	}

	fmt.Fprint(r.out, "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(r.out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(pw)

	u, err := r.userService(db).Register(ctx, username, email, string(pw))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(r.out, "created user %s (%s)\n", u.UserName, u.ID)
	return err
}

func (r *Runner) listUsers(ctx context.Context, db *sql.DB) error {
	users, err := r.userService(db).ListUsers(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.UserName, u.Email, u.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func (r *Runner) prompt(label string) (string, error) {
	fmt.Fprintf(r.out, "%s: ", label)
	line, err := r.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}
