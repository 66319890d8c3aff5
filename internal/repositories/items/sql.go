package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/models"
)

// SQLRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
// The same queries serve SQLite and PostgreSQL; placeholders are rebound per
// dialect.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

var _ Repository = (*SQLRepository)(nil)

// NewSQLRepository returns a repository bound to db speaking dialect.
func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) q(query string) string {
	return dbx.Rebind(r.dialect, query)
}

// Insert stores a new record.
func (r *SQLRepository) Insert(ctx context.Context, rec *models.Record) error {
	tags, err := encodeTags(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `INSERT INTO items (id, name, kind, payload, tags, created_at, last_accessed_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, r.q(query),
		rec.ID, rec.Name, string(rec.Kind), rec.Payload, tags,
		toNanos(rec.CreatedAt), toNanos(rec.LastAccessedAt), rec.Version)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeta(s scanner, extra ...any) (models.ItemMeta, error) {
	var (
		m        models.ItemMeta
		kind     string
		tags     sql.NullString
		created  int64
		accessed int64
	)
	dest := append([]any{&m.ID, &m.Name, &kind, &tags, &created, &accessed, &m.Version}, extra...)
	if err := s.Scan(dest...); err != nil {
		return m, err
	}

	t, err := decodeTags(tags)
	if err != nil {
		return m, fmt.Errorf("failed to decode tags of %s: %w", m.ID, err)
	}
	m.Kind = models.Kind(kind)
	m.Tags = t
	m.CreatedAt = fromNanos(created)
	m.LastAccessedAt = fromNanos(accessed)
	return m, nil
}

// GetByID returns the full record with the given id.
func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	query := `SELECT id, name, kind, tags, created_at, last_accessed_at, version, payload
		FROM items WHERE id = ?`
	row := r.db.QueryRowContext(ctx, r.q(query), id)

	rec := &models.Record{}
	meta, err := scanMeta(row, &rec.Payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	rec.ItemMeta = meta
	return rec, nil
}

// GetAll lists metadata of all items. The payload column is not selected.
func (r *SQLRepository) GetAll(ctx context.Context) ([]models.ItemMeta, error) {
	query := `SELECT id, name, kind, tags, created_at, last_accessed_at, version
		FROM items ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, r.q(query))
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	result := make([]models.ItemMeta, 0)
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetAllRecords lists all items including payload envelopes.
func (r *SQLRepository) GetAllRecords(ctx context.Context) ([]*models.Record, error) {
	query := `SELECT id, name, kind, tags, created_at, last_accessed_at, version, payload
		FROM items ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, r.q(query))
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec := &models.Record{}
		m, err := scanMeta(rows, &rec.Payload)
		if err != nil {
			return nil, err
		}
		rec.ItemMeta = m
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdatePayload is a version compare-and-swap of the payload column.
func (r *SQLRepository) UpdatePayload(ctx context.Context, id string, expectedVersion int64, payload string, accessedAt time.Time) error {
	query := `UPDATE items SET payload = ?, last_accessed_at = ?, version = version + 1
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, r.q(query), payload, toNanos(accessedAt), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		// Either the row is gone or somebody else bumped the version.
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return common.ErrNotFound
		}
		return common.ErrConflict
	default:
		return fmt.Errorf("wrong rows affected count: %d", n)
	}
}

func (r *SQLRepository) exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM items WHERE id = ?`), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query row scan failed: %w", err)
	}
	return n > 0, nil
}

// Touch bumps last_accessed_at without changing the version.
func (r *SQLRepository) Touch(ctx context.Context, id string, accessedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE items SET last_accessed_at = ? WHERE id = ?`), toNanos(accessedAt), id)
	if err != nil {
		return fmt.Errorf("failed to touch item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteByID removes the item. Deleting a missing id succeeds.
func (r *SQLRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, r.q(`DELETE FROM items WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}
