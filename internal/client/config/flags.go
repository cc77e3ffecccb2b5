package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/flagx"
)

var knownFlags = []string{"-a", "-o", "-u", "-t", "-m", "-test", "-r", "-d", "-l"}

// parseFlags populates cfg from command-line flags. Arguments it does not
// know about (the subcommand, -c) are filtered out first.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("manokeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the API server")
	fs.StringVar(&cfg.OrganisationID, "o", cfg.OrganisationID, "organisation id")
	fs.StringVar(&cfg.UserID, "u", cfg.UserID, "user id")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "bearer access token")
	fs.IntVar(&cfg.MinKeyLength, "m", cfg.MinKeyLength, "minimum passphrase length")
	fs.BoolVar(&cfg.TestMode, "test", cfg.TestMode, "disable passphrase length check")
	timeout := fs.Int("r", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "journal database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
