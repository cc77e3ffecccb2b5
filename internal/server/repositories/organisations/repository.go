package organisations

import (
	"context"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Organisation, error)
	// GetForUpdate is GetByID holding a row lock until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Organisation, error)
	SetLock(ctx context.Context, id string, locked bool, lockedBy *string) error
	// CommitEncryption records a completed key change and releases the lock.
	CommitEncryption(ctx context.Context, id, encryptedVerificationKey string, at time.Time) (*models.Organisation, error)
}
