// Command server runs the manokeeper reference API.
//
//	server [flags]                 serve HTTP
//	server token <userID> [flags]  print an access token for userID
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/manokeeper/internal/logging"
	"github.com/dmitrijs2005/manokeeper/internal/server"
	"github.com/dmitrijs2005/manokeeper/internal/server/config"
)

func main() {
	ctx := context.Background()

	args := os.Args[1:]
	var tokenFor string
	if len(args) > 0 && args[0] == "token" {
		if len(args) < 2 || args[1] == "" {
			fmt.Fprintln(os.Stderr, "usage: server token <userID> [flags]")
			os.Exit(2)
		}
		tokenFor, args = args[1], args[2:]
	}

	cfg, err := config.LoadConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := logging.NewJSON(os.Stdout, level)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	if tokenFor != "" {
		tok, err := app.IssueToken(ctx, tokenFor)
		if err != nil {
			logger.Error(ctx, "token failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped with error", "error", err)
		os.Exit(1)
	}
}
