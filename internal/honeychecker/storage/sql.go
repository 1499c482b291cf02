package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/dbx"
	"github.com/dmitrijs2005/honeykeeper/internal/honeychecker/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// SQL keeps records in a relational table. Queries are written with "?"
// placeholders and rebound for PostgreSQL.
type SQL struct {
	db      dbx.DBTX
	dialect Dialect
}

func NewSQL(db dbx.DBTX, dialect Dialect) *SQL {
	return &SQL{db: db, dialect: dialect}
}

// Open opens a database for the dialect and applies the embedded schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*SQL, *sql.DB, error) {
	var driver string
	var gd goose.Dialect
	switch dialect {
	case SQLite:
		driver, gd = "sqlite", goose.DialectSQLite3
	case Postgres:
		driver, gd = "pgx", goose.DialectPostgres
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage dialect %q", common.ErrInvalidArgument, dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrate(ctx, db, gd); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return NewSQL(db, dialect), db, nil
}

func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect) error {
	provider, err := goose.NewProvider(dialect, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (s *SQL) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) Upsert(ctx context.Context, userID string, realIndex int) error {
	query := s.rebind(
		`INSERT INTO honeychecker_records (user_id, real_index) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET real_index = excluded.real_index`)
	if _, err := s.db.ExecContext(ctx, query, userID, realIndex); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQL) RealIndex(ctx context.Context, userID string) (int, error) {
	var idx int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT real_index FROM honeychecker_records WHERE user_id = ?`), userID).Scan(&idx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return idx, nil
}
