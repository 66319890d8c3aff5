// Package config loads runtime configuration for the gophvault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with --config / -c.
//  3. Command-line flags, which override earlier values only when set.
//
// # JSON schema
//
// Durations use timex.Duration, so they may be strings like "1s" or integer
// nanoseconds. Keys that are absent keep their earlier value:
//
//	{
//	  "driver": "bolt",
//	  "dsn": "vault.bolt",
//	  "kdf": "argon2id",
//	  "min_passphrase_length": 8,
//	  "open_timeout": "2s",
//	  "log_level": "info",
//	  "log_format": "json"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
