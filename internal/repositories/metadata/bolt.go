package metadata

import (
	"context"

	"go.etcd.io/bbolt"
)

// Bucket is the BoltDB bucket holding vault metadata.
var Bucket = []byte("metadata")

// BoltRepository implements Repository on a BoltDB bucket.
type BoltRepository struct {
	db *bbolt.DB
	tx *bbolt.Tx
}

var _ Repository = (*BoltRepository)(nil)

// NewBoltRepository returns a repository that opens a transaction per call.
// The metadata bucket must already exist.
func NewBoltRepository(db *bbolt.DB) *BoltRepository {
	return &BoltRepository{db: db}
}

// NewBoltTxRepository returns a repository bound to an open transaction.
func NewBoltTxRepository(tx *bbolt.Tx) *BoltRepository {
	return &BoltRepository{tx: tx}
}

func (r *BoltRepository) view(ctx context.Context, fn func(b *bbolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.tx != nil {
		return fn(r.tx.Bucket(Bucket))
	}
	return r.db.View(func(tx *bbolt.Tx) error { return fn(tx.Bucket(Bucket)) })
}

func (r *BoltRepository) update(ctx context.Context, fn func(b *bbolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.tx != nil {
		return fn(r.tx.Bucket(Bucket))
	}
	return r.db.Update(func(tx *bbolt.Tx) error { return fn(tx.Bucket(Bucket)) })
}

// Get returns a copy of the value stored under key, or nil if there is none.
func (r *BoltRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.view(ctx, func(b *bbolt.Bucket) error {
		// Bolt values are only valid for the life of the transaction.
		if v := b.Get([]byte(key)); v != nil {
			value = append([]byte{}, v...)
		}
		return nil
	})
	return value, err
}

// Set inserts or replaces the value under key.
func (r *BoltRepository) Set(ctx context.Context, key string, value []byte) error {
	return r.update(ctx, func(b *bbolt.Bucket) error {
		return b.Put([]byte(key), value)
	})
}

// Delete removes key. Deleting a missing key succeeds.
func (r *BoltRepository) Delete(ctx context.Context, key string) error {
	return r.update(ctx, func(b *bbolt.Bucket) error {
		return b.Delete([]byte(key))
	})
}

// List returns copies of every key/value pair.
func (r *BoltRepository) List(ctx context.Context) (map[string][]byte, error) {
	result := make(map[string][]byte)
	err := r.view(ctx, func(b *bbolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			result[string(k)] = append([]byte{}, v...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
