package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/server/models"
)

// Query selects a page of one collection.
type Query struct {
	OrganisationID string
	Collection     models.Collection
	UpdatedAfter   time.Time
	WithDeleted    bool
	Limit          int64
	Offset         int64
}

type Repository interface {
	List(ctx context.Context, q Query) ([]models.Record, error)
	// UpdateEncrypted replaces a record's ciphertext and wrapped key.
	UpdateEncrypted(ctx context.Context, rec *models.Record, at time.Time) error
}
