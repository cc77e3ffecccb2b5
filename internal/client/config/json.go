package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/manokeeper/internal/flagx"
	"github.com/dmitrijs2005/manokeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	OrganisationID string         `json:"organisation_id"`
	UserID         string         `json:"user_id"`
	AccessToken    string         `json:"access_token"`
	MinKeyLength   int            `json:"min_key_length"`
	TestMode       *bool          `json:"test_mode"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	DatabasePath   string         `json:"database_path"`
	LogLevel       string         `json:"log_level"`
}

// parseJSON overlays cfg with the non-empty values of the JSON file, if one
// was given.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.OrganisationID, jc.OrganisationID)
	setString(&cfg.UserID, jc.UserID)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.MinKeyLength > 0 {
		cfg.MinKeyLength = jc.MinKeyLength
	}
	if jc.TestMode != nil {
		cfg.TestMode = *jc.TestMode
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
