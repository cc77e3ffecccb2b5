package client

import (
	"context"

	"github.com/dmitrijs2005/manokeeper/internal/client/models"
)

// Client is the REST surface a key rotation depends on.
type Client interface {
	Ping(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	GetOrganisation(ctx context.Context, organisationID string) (*models.Organisation, error)
	// SetEncryptionLock sets or clears the organisation's advisory lock.
	SetEncryptionLock(ctx context.Context, organisationID string, locked bool, lockedBy string) error
	// ListCollection returns every record of c, soft-deleted ones included.
	ListCollection(ctx context.Context, c models.Collection, organisationID string) ([]models.Item, error)
	// Encrypt commits a full rotation batch atomically and returns the
	// updated organisation.
	Encrypt(ctx context.Context, req *models.EncryptRequest) (*models.Organisation, error)

	DownloadDocument(ctx context.Context, path string) ([]byte, error)
	UploadDocument(ctx context.Context, personID string, upload models.Upload) (*models.FileInfo, error)
	DeleteDocument(ctx context.Context, personID, filename string) error
}
