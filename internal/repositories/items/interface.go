package items

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/models"
)

// Repository describes persistence operations for item records.
type Repository interface {
	// Insert stores a new record. The id must not exist yet.
	Insert(ctx context.Context, rec *models.Record) error

	// GetByID returns the full record, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Record, error)

	// GetAll returns metadata for every item without reading payloads.
	GetAll(ctx context.Context) ([]models.ItemMeta, error)

	// GetAllRecords returns every record including payload envelopes.
	GetAllRecords(ctx context.Context) ([]*models.Record, error)

	// UpdatePayload replaces the payload, sets last_accessed_at and increments
	// the version if the stored version equals expectedVersion.
	// It returns common.ErrNotFound or common.ErrConflict.
	UpdatePayload(ctx context.Context, id string, expectedVersion int64, payload string, accessedAt time.Time) error

	// Touch sets last_accessed_at, or returns common.ErrNotFound.
	Touch(ctx context.Context, id string, accessedAt time.Time) error

	// DeleteByID removes the record. Missing ids are not an error.
	DeleteByID(ctx context.Context, id string) error
}
