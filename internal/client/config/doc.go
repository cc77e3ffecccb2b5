// Package config loads runtime configuration for the manokeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config, or $MANOKEEPER_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the API server
//	-o string   organisation id
//	-u string   user id (recorded as the lock owner)
//	-t string   bearer access token
//	-m int      minimum passphrase length
//	-test       disable the passphrase length check
//	-r int      request timeout (seconds)
//	-d string   path of the local journal database
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations use timex.Duration, so "90s" and integer nanoseconds both work:
//
//	{
//	  "server_url": "https://api.example.org",
//	  "organisation_id": "…",
//	  "user_id": "…",
//	  "access_token": "…",
//	  "min_key_length": 8,
//	  "test_mode": false,
//	  "request_timeout": "10m",
//	  "database_path": "manokeeper.db",
//	  "log_level": "info"
//	}
package config
