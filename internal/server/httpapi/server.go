// Package httpapi exposes the services over the REST contract the client
// speaks: JSON envelopes from netx, bearer tokens from auth.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/logging"
	"github.com/dmitrijs2005/manokeeper/internal/server/auth"
	"github.com/dmitrijs2005/manokeeper/internal/server/models"
	"github.com/dmitrijs2005/manokeeper/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type organisationService interface {
	Get(ctx context.Context, id auth.Identity, organisationID string) (*models.Organisation, error)
	SetLock(ctx context.Context, id auth.Identity, organisationID string, locked bool, lockedBy *string) (*models.Organisation, error)
	Encrypt(ctx context.Context, id auth.Identity, batch *models.EncryptBatch) (*models.Organisation, error)
}

type userService interface {
	Me(ctx context.Context, id auth.Identity) (*models.User, error)
}

type recordService interface {
	List(ctx context.Context, id auth.Identity, organisationID string, c models.Collection, opts models.ListOptions) ([]models.Record, error)
}

type documentService interface {
	Upload(ctx context.Context, id auth.Identity, in services.NewDocument) (*models.FileInfo, error)
	Download(ctx context.Context, id auth.Identity, personID, filename string) (*models.Document, []byte, error)
	Delete(ctx context.Context, id auth.Identity, personID, filename string) error
}

// Services groups what the handlers call into.
type Services struct {
	Organisations organisationService
	Users         userService
	Records       recordService
	Documents     documentService
}

type Server struct {
	address       string
	logger        logging.Logger
	svc           Services
	jwtSecret     []byte
	maxUploadSize int64
}

func NewServer(address string, l logging.Logger, svc Services, secretKey []byte, maxUploadSize int64) *Server {
	return &Server{
		address:       address,
		logger:        l.With("module", "http_server"),
		svc:           svc,
		jwtSecret:     secretKey,
		maxUploadSize: maxUploadSize,
	}
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.withRequestLog(s.routes())
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
