package repomanager

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/repositories/items"
	"github.com/dmitrijs2005/gophvault/internal/repositories/metadata"
	"go.etcd.io/bbolt"
)

// BoltManager serves a single-file BoltDB vault.
type BoltManager struct {
	db *bbolt.DB
}

var _ Manager = (*BoltManager)(nil)

// OpenBolt opens (creating if needed) the BoltDB file at path and makes sure
// the items and metadata buckets exist. timeout bounds waiting for the file
// lock held by another process; zero waits forever.
func OpenBolt(path string, timeout time.Duration) (*BoltManager, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{items.Bucket, metadata.Bucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltManager{db: db}, nil
}

func (m *BoltManager) Repositories() Repositories {
	return Repositories{
		Items:    items.NewBoltRepository(m.db),
		Metadata: metadata.NewBoltRepository(m.db),
	}
}

func (m *BoltManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.db.Update(func(tx *bbolt.Tx) error {
		return fn(ctx, Repositories{
			Items:    items.NewBoltTxRepository(tx),
			Metadata: metadata.NewBoltTxRepository(tx),
		})
	})
}

func (m *BoltManager) Close() error {
	return m.db.Close()
}
