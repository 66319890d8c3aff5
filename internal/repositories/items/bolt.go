package items

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"go.etcd.io/bbolt"
)

// Bucket is the BoltDB bucket holding item records.
var Bucket = []byte("items")

// BoltRepository implements Repository on a BoltDB bucket. Records are stored
// as JSON under their id.
//
// A repository built with NewBoltTxRepository runs every call inside the
// given transaction instead of opening its own.
type BoltRepository struct {
	db *bbolt.DB
	tx *bbolt.Tx
}

var _ Repository = (*BoltRepository)(nil)

// NewBoltRepository returns a repository that opens a transaction per call.
// The items bucket must already exist.
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

func getRecord(b *bbolt.Bucket, id string) (*models.Record, error) {
	data := b.Get([]byte(id))
	if data == nil {
		return nil, common.ErrNotFound
	}
	rec := &models.Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to decode item %s: %w", id, err)
	}
	return rec, nil
}

func putRecord(b *bbolt.Bucket, rec *models.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", rec.ID, err)
	}
	return b.Put([]byte(rec.ID), data)
}

func byCreation(a, b models.ItemMeta) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Insert stores a new record.
func (r *BoltRepository) Insert(ctx context.Context, rec *models.Record) error {
	return r.update(ctx, func(b *bbolt.Bucket) error {
		if b.Get([]byte(rec.ID)) != nil {
			return fmt.Errorf("failed to insert item: duplicate id %s", rec.ID)
		}
		return putRecord(b, rec)
	})
}

// GetByID returns the full record with the given id.
func (r *BoltRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	var rec *models.Record
	err := r.view(ctx, func(b *bbolt.Bucket) error {
		var err error
		rec, err = getRecord(b, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetAll lists metadata of all items ordered by creation time.
func (r *BoltRepository) GetAll(ctx context.Context) ([]models.ItemMeta, error) {
	recs, err := r.GetAllRecords(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]models.ItemMeta, 0, len(recs))
	for _, rec := range recs {
		result = append(result, rec.Meta())
	}
	return result, nil
}

// GetAllRecords lists all records ordered by creation time.
func (r *BoltRepository) GetAllRecords(ctx context.Context) ([]*models.Record, error) {
	var result []*models.Record
	err := r.view(ctx, func(b *bbolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			rec := &models.Record{}
			if err := json.Unmarshal(v, rec); err != nil {
				return fmt.Errorf("failed to decode item %s: %w", k, err)
			}
			result = append(result, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(result, func(a, b *models.Record) int { return byCreation(a.ItemMeta, b.ItemMeta) })
	return result, nil
}

// UpdatePayload is a version compare-and-swap of the payload.
func (r *BoltRepository) UpdatePayload(ctx context.Context, id string, expectedVersion int64, payload string, accessedAt time.Time) error {
	return r.update(ctx, func(b *bbolt.Bucket) error {
		rec, err := getRecord(b, id)
		if err != nil {
			return err
		}
		if rec.Version != expectedVersion {
			return common.ErrConflict
		}
		rec.Payload = payload
		rec.LastAccessedAt = accessedAt.UTC()
		rec.Version++
		return putRecord(b, rec)
	})
}

// Touch bumps last_accessed_at without changing the version.
func (r *BoltRepository) Touch(ctx context.Context, id string, accessedAt time.Time) error {
	return r.update(ctx, func(b *bbolt.Bucket) error {
		rec, err := getRecord(b, id)
		if err != nil {
			return err
		}
		rec.LastAccessedAt = accessedAt.UTC()
		return putRecord(b, rec)
	})
}

// DeleteByID removes the item. Deleting a missing id succeeds.
func (r *BoltRepository) DeleteByID(ctx context.Context, id string) error {
	return r.update(ctx, func(b *bbolt.Bucket) error {
		return b.Delete([]byte(id))
	})
}
