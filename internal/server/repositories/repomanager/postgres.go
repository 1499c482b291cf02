// Package repomanager wires repository constructors to a backend and
// exposes migrations and transactions over them. PostgreSQL is the
// production backend; the memory backend serves tests and demos.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/honeykeeper/internal/dbx"
	"github.com/dmitrijs2005/honeykeeper/internal/server/migrations"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/events"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/honeywords"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/userstate"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// postgresRepos binds every repository to the same DBTX.
type postgresRepos struct {
	db dbx.DBTX
}

func (r postgresRepos) Users() users.Repository {
	return users.NewPostgresRepository(r.db)
}

func (r postgresRepos) CredentialSets() credentials.Repository {
	return credentials.NewPostgresRepository(r.db)
}

func (r postgresRepos) HoneywordSets() honeywords.Repository {
	return honeywords.NewPostgresRepository(r.db)
}

func (r postgresRepos) SecurityStates() userstate.Repository {
	return userstate.NewPostgresRepository(r.db)
}

func (r postgresRepos) AuditEvents() events.Repository {
	return events.NewPostgresRepository(r.db)
}

// PostgresRepositoryManager vends PostgreSQL-backed repositories and
// exposes a schema migration hook.
type PostgresRepositoryManager struct {
	postgresRepos
	db *sql.DB
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, postgresRepos{db: tx})
	})
}

func (m *PostgresRepositoryManager) DB() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

// NewPostgresRepositoryManager constructs a manager over an open pool.
func NewPostgresRepositoryManager(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{postgresRepos: postgresRepos{db: db}, db: db}
}

// OpenPostgres opens a pgx-backed pool and checks connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgresRepositoryManager(db), nil
}
