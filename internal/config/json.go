package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so the timeout can be "1s" or integer nanoseconds.
type JsonConfig struct {
	Driver              string         `json:"driver"`
	DSN                 string         `json:"dsn"`
	KDF                 string         `json:"kdf"`
	MinPassphraseLength int            `json:"min_passphrase_length"`
	OpenTimeout         timex.Duration `json:"open_timeout"`
	LogLevel            string         `json:"log_level"`
	LogFormat           string         `json:"log_format"`
}

// parseJSON overlays cfg with the values present in the file at path.
// The DTO starts from cfg so absent keys keep their current value.
func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	jc := JsonConfig{
		Driver:              cfg.Driver,
		DSN:                 cfg.DSN,
		KDF:                 cfg.KDF,
		MinPassphraseLength: cfg.MinPassphraseLength,
		OpenTimeout:         timex.Duration{Duration: cfg.OpenTimeout},
		LogLevel:            cfg.LogLevel,
		LogFormat:           cfg.LogFormat,
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	cfg.Driver = jc.Driver
	cfg.DSN = jc.DSN
	cfg.KDF = jc.KDF
	cfg.MinPassphraseLength = jc.MinPassphraseLength
	cfg.OpenTimeout = jc.OpenTimeout.Duration
	cfg.LogLevel = jc.LogLevel
	cfg.LogFormat = jc.LogFormat
	return nil
}
