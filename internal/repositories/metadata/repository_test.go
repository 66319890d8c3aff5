package metadata

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	_ "modernc.org/sqlite"
)

func setupSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return db
}

func setupBolt(t *testing.T) *bbolt.DB {
	t.Helper()
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "meta.bolt"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(Bucket)
		return err
	}))
	return db
}

func TestRepository_Contract(t *testing.T) {
	backends := map[string]func(t *testing.T) Repository{
		"sqlite": func(t *testing.T) Repository { return NewSQLRepository(setupSQLite(t), dbx.DialectSQLite) },
		"bolt":   func(t *testing.T) Repository { return NewBoltRepository(setupBolt(t)) },
	}

	for name, newRepo := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := newRepo(t)

			v, err := r.Get(ctx, KeyKDF)
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, r.Set(ctx, KeyKDF, []byte("sha256")))
			require.NoError(t, r.Set(ctx, KeyKDF, []byte("argon2id")))
			require.NoError(t, r.Set(ctx, KeyKDFSalt, []byte{0, 1, 2}))

			v, err = r.Get(ctx, KeyKDF)
			require.NoError(t, err)
			assert.Equal(t, []byte("argon2id"), v)

			all, err := r.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{KeyKDF: []byte("argon2id"), KeyKDFSalt: {0, 1, 2}}, all)

			require.NoError(t, r.Delete(ctx, KeyKDF))
			v, err = r.Get(ctx, KeyKDF)
			require.NoError(t, err)
			assert.Nil(t, v)

			all, err = r.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{KeyKDFSalt: {0, 1, 2}}, all)
		})
	}
}

func TestPostgres_SetUsesDollarPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`VALUES ($1, $2)`)).
		WithArgs(KeyKDF, []byte("sha256")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewSQLRepository(db, dbx.DialectPostgres)
	require.NoError(t, r.Set(context.Background(), KeyKDF, []byte("sha256")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT value FROM metadata`).WillReturnError(errors.New("boom"))

	r := NewSQLRepository(db, dbx.DialectPostgres)
	_, err = r.Get(context.Background(), KeyKDF)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to get metadata[kdf]")
}

func TestSQLRepository_ListErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT key, value FROM metadata`).WillReturnError(errors.New("boom"))
	mock.ExpectQuery(`SELECT key, value FROM metadata`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow(KeyKDF, []byte("sha256")).
			RowError(0, errors.New("row broken")))

	r := NewSQLRepository(db, dbx.DialectSQLite)
	_, err = r.List(context.Background())
	require.ErrorContains(t, err, "failed to select metadata")

	_, err = r.List(context.Background())
	require.ErrorContains(t, err, "row broken")
	require.NoError(t, mock.ExpectationsWereMet())
}
