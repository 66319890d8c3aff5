// Package items provides the persistence layer for vault items.
//
// # Overview
//
// Repository describes CRUD over models.Record values: item metadata plus the
// payload cipher envelope. Implementations never see plaintext payloads.
//
// Two implementations are provided:
//
//   - SQLRepository: SQLite or PostgreSQL over dbx.DBTX (*sql.DB or *sql.Tx)
//   - BoltRepository: a BoltDB bucket keyed by item id
//
// # Ordering
//
// GetAll returns items ordered by creation time, then id, so repeated calls
// without mutation return the same order.
//
// # Concurrency
//
// UpdatePayload is a compare-and-swap on the item version: it fails with
// common.ErrConflict when the stored version differs from the expected one.
//
// Typical Usage
//
//	repo := items.NewSQLRepository(db, dbx.DialectSQLite)
//	_ = repo.Insert(ctx, rec)
//	rec, _ = repo.GetByID(ctx, id)
//	metas, _ := repo.GetAll(ctx)
//	_ = repo.DeleteByID(ctx, id)
package items
