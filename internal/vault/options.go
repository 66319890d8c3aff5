package vault

import (
	"time"

	"github.com/dmitrijs2005/gophvault/internal/keymgr"
	"github.com/dmitrijs2005/gophvault/internal/logging"
)

// Option configures a Vault.
type Option func(*Vault)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(v *Vault) { v.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.clock = now }
}

// WithIDGenerator overrides the random UUID id generator.
func WithIDGenerator(gen func() string) Option {
	return func(v *Vault) { v.newID = gen }
}

// WithDeriver selects the key derivation function recorded for a new vault.
// An existing vault keeps the function it was created with.
func WithDeriver(d keymgr.Deriver) Option {
	return func(v *Vault) { v.deriver = d }
}

// WithMinPassphraseLength rejects shorter passphrases with
// common.ErrWeakPassphrase.
func WithMinPassphraseLength(n int) Option {
	return func(v *Vault) { v.minLen = n }
}
