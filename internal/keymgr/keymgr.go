// Package keymgr turns a user passphrase into the vault's session key and
// keeps that key in a memguard enclave until the vault is locked.
//
// The raw passphrase is never stored and never used as a cipher key; only
// the output of the configured Deriver is.
package keymgr

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
)

// Manager holds at most one active session key.
// It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	deriver Deriver
	minLen  int
	key     *memguard.Enclave
}

// Option configures a Manager.
type Option func(*Manager)

// WithDeriver replaces the default SHA-256 deriver.
func WithDeriver(d Deriver) Option {
	return func(m *Manager) { m.deriver = d }
}

// WithMinPassphraseLength makes SetKey reject passphrases shorter than n
// runes. Zero (the default) accepts anything, including the empty string.
func WithMinPassphraseLength(n int) Option {
	return func(m *Manager) { m.minLen = n }
}

// New returns a locked Manager.
func New(opts ...Option) *Manager {
	m := &Manager{deriver: SHA256Deriver{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetDeriver swaps the deriver. The active key, if any, is kept.
func (m *Manager) SetDeriver(d Deriver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deriver = d
}

// SetKey derives a key from passphrase and makes it the active key,
// replacing any previous one.
func (m *Manager) SetKey(passphrase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.minLen > 0 && utf8.RuneCountInString(passphrase) < m.minLen {
		return fmt.Errorf("%w: minimum is %d characters", common.ErrWeakPassphrase, m.minLen)
	}

	pass := []byte(passphrase)
	defer common.WipeByteArray(pass)

	// NewEnclave wipes the derived buffer.
	m.key = memguard.NewEnclave(m.deriver.Derive(pass))
	return nil
}

// ClearKey discards the active key.
func (m *Manager) ClearKey() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = nil
}

// HasKey reports whether a key is active.
func (m *Manager) HasKey() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.key != nil
}

// WithKey calls fn with the active key. The slice is only valid inside fn and
// is wiped when fn returns. Without an active key it returns common.ErrLocked.
func (m *Manager) WithKey(fn func(key []byte) error) error {
	m.mu.RLock()
	enclave := m.key
	m.mu.RUnlock()

	if enclave == nil {
		return common.ErrLocked
	}

	buf, err := enclave.Open()
	if err != nil {
		return fmt.Errorf("open key enclave: %w", err)
	}
	defer buf.Destroy()

	return fn(buf.Bytes())
}

// Deriver maps a passphrase to a cryptox.KeySize key deterministically.
type Deriver interface {
	Name() string
	Derive(passphrase []byte) []byte
}

// Deriver names as persisted in vault metadata.
const (
	KDFSHA256   = "sha256"
	KDFArgon2ID = "argon2id"
)

// SHA256Deriver uses a single SHA-256 of the passphrase.
type SHA256Deriver struct{}

func (SHA256Deriver) Name() string { return KDFSHA256 }

func (SHA256Deriver) Derive(passphrase []byte) []byte {
	return cryptox.KeyFromPassphrase(passphrase)
}

// Argon2Deriver uses Argon2id with a per-vault salt.
type Argon2Deriver struct {
	Salt []byte
}

func (Argon2Deriver) Name() string { return KDFArgon2ID }

func (d Argon2Deriver) Derive(passphrase []byte) []byte {
	return cryptox.DeriveMasterKey(passphrase, d.Salt)
}

// NewDeriver returns the deriver registered under name. salt is only used by
// argon2id; a nil salt there means one has yet to be generated.
func NewDeriver(name string, salt []byte) (Deriver, error) {
	switch name {
	case KDFSHA256, "":
		return SHA256Deriver{}, nil
	case KDFArgon2ID:
		return Argon2Deriver{Salt: salt}, nil
	default:
		return nil, fmt.Errorf("unknown key derivation function %q", name)
	}
}
