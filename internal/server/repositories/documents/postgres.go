// Package documents provides the PostgreSQL repository of person file
// metadata. Blobs live in object storage.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/dbx"
	"github.com/dmitrijs2005/manokeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) error {
	query :=
		`INSERT INTO documents (filename, person_id, organisation_id, original_name, mime_type, size, storage_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 `

	_, err := r.db.ExecContext(ctx, query, doc.Filename, doc.PersonID, doc.OrganisationID,
		doc.OriginalName, doc.MimeType, doc.Size, doc.StorageKey, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, organisationID, personID, filename string) (*models.Document, error) {
	query :=
		`SELECT filename, person_id, organisation_id, original_name, mime_type, size, storage_key, created_at
		 FROM documents
		 WHERE organisation_id = $1 AND person_id = $2 AND filename = $3
		 `

	d := &models.Document{}
	err := r.db.QueryRowContext(ctx, query, organisationID, personID, filename).Scan(
		&d.Filename, &d.PersonID, &d.OrganisationID, &d.OriginalName, &d.MimeType, &d.Size, &d.StorageKey, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, organisationID, personID, filename string) error {
	query := `DELETE FROM documents WHERE organisation_id = $1 AND person_id = $2 AND filename = $3`

	res, err := r.db.ExecContext(ctx, query, organisationID, personID, filename)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
