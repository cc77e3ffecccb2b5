// Package records provides the PostgreSQL repository shared by every
// encrypted collection.
package records

import (
	"context"
	"database/sql"
	"fmt"
	"time"

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

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func (r *PostgresRepository) List(ctx context.Context, q Query) ([]models.Record, error) {
	query := `SELECT id, organisation_id, encrypted, encrypted_entity_key, created_at, updated_at, deleted_at
		FROM records
		WHERE organisation_id = $1 AND collection = $2 AND updated_at > $3
			AND ($4 OR deleted_at IS NULL)
		ORDER BY updated_at, id
		LIMIT $5 OFFSET $6`

	rows, err := r.db.QueryContext(ctx, query,
		q.OrganisationID, string(q.Collection), q.UpdatedAfter, q.WithDeleted, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	result := make([]models.Record, 0)
	for rows.Next() {
		var (
			rec                       models.Record
			created, updated, deleted sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.Organisation, &rec.Encrypted, &rec.EncryptedEntityKey,
			&created, &updated, &deleted); err != nil {
			return nil, err
		}
		rec.Collection = q.Collection
		rec.CreatedAt = timePtr(created)
		rec.UpdatedAt = timePtr(updated)
		rec.DeletedAt = timePtr(deleted)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) UpdateEncrypted(ctx context.Context, rec *models.Record, at time.Time) error {
	query := `UPDATE records SET encrypted = $4, encrypted_entity_key = $5, updated_at = $6
		WHERE organisation_id = $1 AND collection = $2 AND id = $3`

	res, err := r.db.ExecContext(ctx, query,
		rec.Organisation, string(rec.Collection), rec.ID, rec.Encrypted, rec.EncryptedEntityKey, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%s/%s: %w", rec.Collection, rec.ID, common.ErrorNotFound)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
