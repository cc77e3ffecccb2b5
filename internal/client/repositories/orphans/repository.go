// Package orphans journals document blobs that no record references any
// more, so that they can be deleted later by an explicit cleanup run.
package orphans

import (
	"context"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/client/models"
)

type Repository interface {
	// Record adds blobs to the journal. Blobs already present are ignored.
	Record(ctx context.Context, rotationID string, reason models.OrphanReason, blobs []models.BlobRef) error
	// Pending lists blobs not yet deleted, oldest first.
	Pending(ctx context.Context) ([]models.OrphanBlob, error)
	MarkDeleted(ctx context.Context, id int64, at time.Time) error
}
