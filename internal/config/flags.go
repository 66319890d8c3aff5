package config

import (
	"github.com/spf13/pflag"
)

const (
	flagConfig      = "config"
	flagDriver      = "driver"
	flagDSN         = "dsn"
	flagKDF         = "kdf"
	flagMinLength   = "min-passphrase-length"
	flagOpenTimeout = "open-timeout"
	flagLogLevel    = "log-level"
	flagLogFormat   = "log-format"
)

// RegisterFlags defines the configuration flags on fs. Defaults shown in
// help come from (*Config).LoadDefaults; values are only taken from flags
// the user actually set.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(flagConfig, "c", "", "path to JSON config file")
	fs.StringP(flagDriver, "d", d.Driver, "storage driver: sqlite, postgres or bolt")
	fs.String(flagDSN, d.DSN, "database file path or postgres connection string")
	fs.String(flagKDF, d.KDF, "key derivation for new vaults: sha256 or argon2id")
	fs.Int(flagMinLength, d.MinPassphraseLength, "reject shorter passphrases (0 accepts any)")
	fs.Duration(flagOpenTimeout, d.OpenTimeout, "how long to wait for the vault file lock")
	fs.String(flagLogLevel, d.LogLevel, "log level: debug, info, warn, error")
	fs.String(flagLogFormat, d.LogFormat, "log format: text or json")
}

// applyFlags overlays cfg with the flags that were explicitly set.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case flagDriver:
			cfg.Driver, err = fs.GetString(flagDriver)
		case flagDSN:
			cfg.DSN, err = fs.GetString(flagDSN)
		case flagKDF:
			cfg.KDF, err = fs.GetString(flagKDF)
		case flagMinLength:
			cfg.MinPassphraseLength, err = fs.GetInt(flagMinLength)
		case flagOpenTimeout:
			cfg.OpenTimeout, err = fs.GetDuration(flagOpenTimeout)
		case flagLogLevel:
			cfg.LogLevel, err = fs.GetString(flagLogLevel)
		case flagLogFormat:
			cfg.LogFormat, err = fs.GetString(flagLogFormat)
		}
	})
	return err
}
