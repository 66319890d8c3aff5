// Package models defines vault item types shared by the store and its
// repositories.
package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

// Kind classifies a vault item. It is fixed at creation.
type Kind string

const (
	KindPassword Kind = "password"
	KindFile     Kind = "file"
	KindNote     Kind = "note"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindPassword, KindFile, KindNote}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindPassword, KindFile, KindNote:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrInvalidKind, s)
	}
}

// ItemMeta is everything about an item except its payload. It is what
// listings return, so a locked vault can still be browsed.
type ItemMeta struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Kind           Kind      `json:"kind"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	Version        int64     `json:"version"`
}

// SecureItem is a vault entry with its payload in plaintext.
type SecureItem struct {
	ItemMeta
	Payload any `json:"payload"`
}

// Record is the persisted form of an item: Payload holds the cipher envelope.
type Record struct {
	ItemMeta
	Payload string `json:"payload"`
}

// Meta strips the ciphertext from a record.
func (r *Record) Meta() ItemMeta {
	m := r.ItemMeta
	if m.Tags != nil {
		m.Tags = append([]string(nil), m.Tags...)
	}
	return m
}
