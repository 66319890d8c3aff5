// Package common defines shared sentinel errors and small helpers used across
// vault layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrStorage  = errors.New("storage error")
	ErrConflict = errors.New("version conflict")

	// Key / cipher errors.
	ErrLocked         = errors.New("vault is locked")
	ErrDecryption     = errors.New("decryption failed")
	ErrWeakPassphrase = errors.New("passphrase too short")

	// Validation errors.
	ErrInvalidKind = errors.New("invalid item kind")
)
