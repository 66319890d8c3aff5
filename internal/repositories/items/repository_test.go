package items

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/migrations"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/pressly/goose/v3"
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

	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.SQLite())
	require.NoError(t, err)
	_, err = p.Up(context.Background())
	require.NoError(t, err)
	return db
}

func setupBolt(t *testing.T) *bbolt.DB {
	t.Helper()
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "items.bolt"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(Bucket)
		return err
	}))
	return db
}

type repoFactory func(t *testing.T) Repository

func backends() map[string]repoFactory {
	return map[string]repoFactory{
		"sqlite": func(t *testing.T) Repository { return NewSQLRepository(setupSQLite(t), dbx.DialectSQLite) },
		"bolt":   func(t *testing.T) Repository { return NewBoltRepository(setupBolt(t)) },
	}
}

var base = time.Date(2026, 1, 2, 3, 4, 5, 123456789, time.UTC)

func record(id string, offset time.Duration, tags ...string) *models.Record {
	ts := base.Add(offset)
	return &models.Record{
		ItemMeta: models.ItemMeta{
			ID:             id,
			Name:           "name-" + id,
			Kind:           models.KindNote,
			Tags:           tags,
			CreatedAt:      ts,
			LastAccessedAt: ts,
			Version:        1,
		},
		Payload: "envelope-" + id,
	}
}

func TestRepository_Contract(t *testing.T) {
	for name, newRepo := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("insert and get", func(t *testing.T) {
				r := newRepo(t)
				in := record("a", 0, "work", "urgent")
				require.NoError(t, r.Insert(ctx, in))

				got, err := r.GetByID(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, in.ID, got.ID)
				assert.Equal(t, in.Name, got.Name)
				assert.Equal(t, in.Kind, got.Kind)
				assert.Equal(t, in.Payload, got.Payload)
				assert.Equal(t, []string{"work", "urgent"}, got.Tags)
				assert.True(t, in.CreatedAt.Equal(got.CreatedAt))
				assert.True(t, in.LastAccessedAt.Equal(got.LastAccessedAt))
				assert.Equal(t, int64(1), got.Version)
			})

			t.Run("nil tags stay nil", func(t *testing.T) {
				r := newRepo(t)
				require.NoError(t, r.Insert(ctx, record("a", 0)))
				got, err := r.GetByID(ctx, "a")
				require.NoError(t, err)
				assert.Nil(t, got.Tags)
			})

			t.Run("duplicate id rejected", func(t *testing.T) {
				r := newRepo(t)
				require.NoError(t, r.Insert(ctx, record("a", 0)))
				require.Error(t, r.Insert(ctx, record("a", time.Second)))
			})

			t.Run("get missing", func(t *testing.T) {
				r := newRepo(t)
				_, err := r.GetByID(ctx, "nope")
				require.ErrorIs(t, err, common.ErrNotFound)
			})

			t.Run("get all ordered without payload", func(t *testing.T) {
				r := newRepo(t)
				require.NoError(t, r.Insert(ctx, record("c", 2*time.Second)))
				require.NoError(t, r.Insert(ctx, record("b", time.Second)))
				require.NoError(t, r.Insert(ctx, record("a", time.Second)))

				metas, err := r.GetAll(ctx)
				require.NoError(t, err)
				ids := make([]string, 0, len(metas))
				for _, m := range metas {
					ids = append(ids, m.ID)
				}
				assert.Equal(t, []string{"a", "b", "c"}, ids)

				again, err := r.GetAll(ctx)
				require.NoError(t, err)
				assert.Equal(t, metas, again)

				recs, err := r.GetAllRecords(ctx)
				require.NoError(t, err)
				require.Len(t, recs, 3)
				assert.Equal(t, "envelope-a", recs[0].Payload)
			})

			t.Run("get all empty", func(t *testing.T) {
				r := newRepo(t)
				metas, err := r.GetAll(ctx)
				require.NoError(t, err)
				assert.Empty(t, metas)
			})

			t.Run("update payload CAS", func(t *testing.T) {
				r := newRepo(t)
				require.NoError(t, r.Insert(ctx, record("a", 0)))

				later := base.Add(time.Hour)
				require.NoError(t, r.UpdatePayload(ctx, "a", 1, "new-envelope", later))

				got, err := r.GetByID(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, "new-envelope", got.Payload)
				assert.Equal(t, int64(2), got.Version)
				assert.True(t, later.Equal(got.LastAccessedAt))
				assert.True(t, base.Equal(got.CreatedAt))

				err = r.UpdatePayload(ctx, "a", 1, "stale", later)
				require.ErrorIs(t, err, common.ErrConflict)

				err = r.UpdatePayload(ctx, "missing", 1, "x", later)
				require.ErrorIs(t, err, common.ErrNotFound)
			})

			t.Run("touch", func(t *testing.T) {
				r := newRepo(t)
				require.NoError(t, r.Insert(ctx, record("a", 0)))

				later := base.Add(time.Minute)
				require.NoError(t, r.Touch(ctx, "a", later))

				got, err := r.GetByID(ctx, "a")
				require.NoError(t, err)
				assert.True(t, later.Equal(got.LastAccessedAt))
				assert.Equal(t, int64(1), got.Version)

				require.ErrorIs(t, r.Touch(ctx, "missing", later), common.ErrNotFound)
			})

			t.Run("delete idempotent", func(t *testing.T) {
				r := newRepo(t)
				require.NoError(t, r.Insert(ctx, record("a", 0)))

				require.NoError(t, r.DeleteByID(ctx, "a"))
				require.NoError(t, r.DeleteByID(ctx, "a"))
				require.NoError(t, r.DeleteByID(ctx, "never-existed"))

				_, err := r.GetByID(ctx, "a")
				require.ErrorIs(t, err, common.ErrNotFound)
			})
		})
	}
}

func TestBoltRepository_CanceledContext(t *testing.T) {
	r := NewBoltRepository(setupBolt(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.GetAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, r.Insert(ctx, record("a", 0)), context.Canceled)
}

func TestBoltRepository_TxBound(t *testing.T) {
	db := setupBolt(t)
	ctx := context.Background()

	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		r := NewBoltTxRepository(tx)
		if err := r.Insert(ctx, record("a", 0)); err != nil {
			return err
		}
		_, err := r.GetByID(ctx, "a")
		return err
	}))

	got, err := NewBoltRepository(db).GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}

func TestSQLRepository_WithinTxRollback(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := NewSQLRepository(tx, dbx.DialectSQLite)
		if err := r.Insert(ctx, record("a", 0)); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = NewSQLRepository(db, dbx.DialectSQLite).GetByID(ctx, "a")
	require.ErrorIs(t, err, common.ErrNotFound)
}
