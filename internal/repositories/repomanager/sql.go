package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/migrations"
	"github.com/dmitrijs2005/gophvault/internal/repositories/items"
	"github.com/dmitrijs2005/gophvault/internal/repositories/metadata"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLManager serves SQLite and PostgreSQL through database/sql.
type SQLManager struct {
	db      *sql.DB
	dialect dbx.Dialect
}

var _ Manager = (*SQLManager)(nil)

// NewSQLManager wraps an already opened database. It does not migrate.
func NewSQLManager(db *sql.DB, dialect dbx.Dialect) *SQLManager {
	return &SQLManager{db: db, dialect: dialect}
}

// gooseUp is a seam for testing schema migrations.
var gooseUp = func(ctx context.Context, db *sql.DB, dialect goose.Dialect, fsys fs.FS) error {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// OpenSQLite opens (creating if needed) the SQLite database at dsn and
// migrates it.
func OpenSQLite(ctx context.Context, dsn string) (*SQLManager, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and avoids
	// SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	m := NewSQLManager(db, dbx.DialectSQLite)
	if err := m.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return m, nil
}

// OpenPostgres connects to PostgreSQL through pgx and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*SQLManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := NewSQLManager(db, dbx.DialectPostgres)
	if err := m.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return m, nil
}

// RunMigrations applies the embedded migrations for the manager's dialect.
func (m *SQLManager) RunMigrations(ctx context.Context) error {
	switch m.dialect {
	case dbx.DialectSQLite:
		return gooseUp(ctx, m.db, goose.DialectSQLite3, migrations.SQLite())
	case dbx.DialectPostgres:
		return gooseUp(ctx, m.db, goose.DialectPostgres, migrations.Postgres())
	default:
		return fmt.Errorf("no migrations for dialect %q", m.dialect)
	}
}

func (m *SQLManager) bind(db dbx.DBTX) Repositories {
	return Repositories{
		Items:    items.NewSQLRepository(db, m.dialect),
		Metadata: metadata.NewSQLRepository(db, m.dialect),
	}
}

func (m *SQLManager) Repositories() Repositories {
	return m.bind(m.db)
}

func (m *SQLManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, m.bind(tx))
	})
}

func (m *SQLManager) Close() error {
	return m.db.Close()
}
