package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/keymgr"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/repositories/repomanager"
	"github.com/spf13/pflag"
)

// Config holds runtime settings for the gophvault CLI.
//
// Fields:
//   - Driver: storage backend, one of sqlite, postgres, bolt.
//   - DSN: file path (sqlite, bolt) or connection string (postgres).
//   - KDF: key derivation function recorded for new vaults.
//   - MinPassphraseLength: zero accepts any passphrase.
//   - OpenTimeout: how long to wait for the bolt file lock.
//   - LogLevel, LogFormat: see logging.New.
type Config struct {
	Driver              string
	DSN                 string
	KDF                 string
	MinPassphraseLength int
	OpenTimeout         time.Duration
	LogLevel            string
	LogFormat           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Driver = repomanager.DriverSQLite
	c.DSN = "vault.db"
	c.KDF = keymgr.KDFSHA256
	c.MinPassphraseLength = 0
	c.OpenTimeout = time.Second
	c.LogLevel = "warn"
	c.LogFormat = logging.FormatText
}

// Load builds a Config from defaults, then the JSON file named by the
// "config" flag, then every flag in fs that was set explicitly. fs must have
// been prepared with RegisterFlags and parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	path, err := fs.GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := applyFlags(cfg, fs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	drivers = []string{repomanager.DriverSQLite, repomanager.DriverPostgres, repomanager.DriverBolt}
	kdfs    = []string{keymgr.KDFSHA256, keymgr.KDFArgon2ID}
	formats = []string{logging.FormatText, logging.FormatJSON}
)

// Validate rejects unknown enum values and negative numbers.
func (c *Config) Validate() error {
	if !slices.Contains(drivers, c.Driver) {
		return fmt.Errorf("invalid driver %q, want one of %s", c.Driver, strings.Join(drivers, ", "))
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn must not be empty")
	}
	if !slices.Contains(kdfs, c.KDF) {
		return fmt.Errorf("invalid kdf %q, want one of %s", c.KDF, strings.Join(kdfs, ", "))
	}
	if c.MinPassphraseLength < 0 {
		return fmt.Errorf("min passphrase length must not be negative")
	}
	if c.OpenTimeout < 0 {
		return fmt.Errorf("open timeout must not be negative")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !slices.Contains(formats, c.LogFormat) {
		return fmt.Errorf("invalid log format %q, want one of %s", c.LogFormat, strings.Join(formats, ", "))
	}
	return nil
}
