// Package server wires the reference API together: Postgres repositories,
// S3 document storage, services and the HTTP server, with graceful shutdown
// on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/manokeeper/internal/logging"
	"github.com/dmitrijs2005/manokeeper/internal/server/config"
	"github.com/dmitrijs2005/manokeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/manokeeper/internal/server/services"
	"github.com/dmitrijs2005/manokeeper/internal/server/storage"
)

// Indirections used to facilitate testing.
var (
	openDB         = sql.Open
	newRepoManager = func() repomanager.RepositoryManager {
		return repomanager.NewPostgresRepositoryManager()
	}
	newBlobStore = func(ctx context.Context, c *config.Config) (storage.BlobStore, error) {
		return storage.NewS3Store(ctx, c)
	}
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	users  *services.UserService
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	store, err := newBlobStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	secret := []byte(c.SecretKey)
	us := services.NewUserService(db, rm, secret, c.AccessTokenValidityDuration)

	srv := httpapi.NewServer(c.EndpointAddr, logger, httpapi.Services{
		Organisations: services.NewOrganisationService(db, rm),
		Users:         us,
		Records:       services.NewRecordService(db, rm),
		Documents:     services.NewDocumentService(db, rm, store),
	}, secret, c.MaxUploadSize)

	return &App{config: c, logger: logger, db: db, users: us, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP until a signal arrives or ctx is cancelled, then closes
// the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	err := app.server.Run(ctx)
	if cerr := app.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// IssueToken mints an access token for userID. Used by operators to hand a
// token to a CLI user.
func (app *App) IssueToken(ctx context.Context, userID string) (string, error) {
	defer app.db.Close()
	return app.users.IssueToken(ctx, userID)
}
