// Package metadata stores vault-level settings as raw key/value pairs, for
// example the name of the key derivation function and its salt.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyKDF     = "kdf"
	KeyKDFSalt = "kdf_salt"
)

// Repository is a small key/value table. Get returns (nil, nil) for a
// missing key; List returns every pair at once.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
}
