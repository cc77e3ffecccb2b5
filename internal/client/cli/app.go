package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/client/client"
	"github.com/dmitrijs2005/manokeeper/internal/client/config"
	"github.com/dmitrijs2005/manokeeper/internal/client/keys"
	"github.com/dmitrijs2005/manokeeper/internal/client/models"
	"github.com/dmitrijs2005/manokeeper/internal/client/rotation"
	"github.com/dmitrijs2005/manokeeper/internal/client/services"
	"github.com/dmitrijs2005/manokeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const (
	onlineCheckInterval = 30 * time.Second
	progressInterval    = 2 * time.Second
)

type rotationService interface {
	Open(ctx context.Context, opts ...rotation.Option) (*services.Session, error)
	Unlock(ctx context.Context, sess *services.Session, passphrase string) error
	Inventory(ctx context.Context, sess *services.Session) (*rotation.Inventory, error)
}

type cleanupService interface {
	Pending(ctx context.Context) ([]models.OrphanBlob, error)
	Run(ctx context.Context) (*services.CleanupReport, error)
}

type App struct {
	config    *config.Config
	log       logging.Logger
	api       client.Client
	repos     *client.Repositories
	rotations rotationService
	cleanup   cleanupService

	mu       sync.Mutex
	mode     Mode
	userName string

	reader           *bufio.Reader
	out              io.Writer
	progressInterval time.Duration
	now              func() time.Time
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	repos, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	api := client.NewHTTPClient(c.ServerURL, c.AccessToken, c.RequestTimeout)
	km := keys.NewManager(keys.WithMinLength(c.MinKeyLength), keys.WithTestMode(c.TestMode))

	return &App{
		config:           c,
		log:              log,
		api:              api,
		repos:            repos,
		rotations:        services.NewRotationService(api, km, repos.Orphans, log, c.OrganisationID, c.UserID),
		cleanup:          services.NewCleanupService(repos.Orphans, api, log),
		reader:           bufio.NewReader(os.Stdin),
		out:              os.Stdout,
		progressInterval: progressInterval,
		now:              time.Now,
	}, nil
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(ctx, "switched mode", "mode", mode)
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Run starts the REPL and blocks until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if a.repos != nil {
			if err := a.repos.Close(); err != nil {
				a.log.Warn(ctx, "close database", "error", err)
			}
		}
	}()
	a.Root(ctx)
	return nil
}

// StartOnlineStatusWatcher pings the server every interval and flips Mode
// accordingly until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.api.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
