// Package config loads runtime configuration for the claimkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c / -config or CLAIMKEEPER_CONFIG.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   data directory
//	-m string   metadata database DSN
//	-b string   blob backend (bolt|sqlite)
//	-e string   export directory
//	-a string   bridge listen address
//	-w string   inbox directory to watch
//	-i int      save interval (seconds)
//	-l string   log level
//
// # JSON schema
//
// Durations use timex.Duration, so "30s" and integer nanoseconds both work.
// Only keys present in the file override the defaults:
//
//	{
//	  "data_dir": "./data",
//	  "blob_backend": "bolt",
//	  "save_interval": "30s",
//	  "max_file_size": 10485760,
//	  "export_dir": "./exports",
//	  "bridge_addr": "127.0.0.1:8765",
//	  "bridge_timeout": "1.5s",
//	  "s3": {"bucket": "claims", "region": "eu-central-1"}
//	}
package config
