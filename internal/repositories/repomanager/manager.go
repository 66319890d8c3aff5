// Package repomanager opens a storage backend, prepares its schema and vends
// repositories bound either to the backend or to a transaction.
package repomanager

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/repositories/items"
	"github.com/dmitrijs2005/gophvault/internal/repositories/metadata"
)

// Supported backend drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// Repositories groups the repositories of one backend (or one transaction).
type Repositories struct {
	Items    items.Repository
	Metadata metadata.Repository
}

// Manager is a storage backend.
type Manager interface {
	// Repositories returns repositories that auto-commit each call.
	Repositories() Repositories

	// WithTx runs fn with repositories bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	// Close releases the backend.
	Close() error
}

// Open opens the backend named by driver. dsn is a file path for sqlite and
// bolt and a connection string for postgres. timeout bounds waiting for the
// bolt file lock.
func Open(ctx context.Context, driver, dsn string, timeout time.Duration) (Manager, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	case DriverBolt:
		return OpenBolt(dsn, timeout)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
