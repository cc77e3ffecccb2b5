package documents

import (
	"context"

	"github.com/dmitrijs2005/manokeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, organisationID, personID, filename string) (*models.Document, error)
	Delete(ctx context.Context, organisationID, personID, filename string) error
}
