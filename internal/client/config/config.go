package config

import "time"

// Config holds runtime settings for the manokeeper CLI.
type Config struct {
	ServerURL      string
	OrganisationID string
	UserID         string
	AccessToken    string
	// MinKeyLength is the shortest accepted passphrase.
	MinKeyLength int
	// TestMode lifts the passphrase length check.
	TestMode       bool
	RequestTimeout time.Duration
	// DatabasePath is the SQLite file of the orphan-blob journal.
	DatabasePath string
	LogLevel     string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.MinKeyLength = 8
	c.RequestTimeout = 10 * time.Minute
	c.DatabasePath = "manokeeper.db"
	c.LogLevel = "info"
}

// LoadConfig applies defaults, then the JSON file named by -c/-config (if
// any), then flags. Later sources win. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
