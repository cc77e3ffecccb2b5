package orphans

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/client/models"
	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/dbx"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Record(ctx context.Context, rotationID string, reason models.OrphanReason, blobs []models.BlobRef) error {
	if len(blobs) == 0 {
		return nil
	}
	recordedAt := r.now().UTC()

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, b := range blobs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO orphan_blobs (rotation_id, person_id, filename, reason, recorded_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(person_id, filename) DO NOTHING
			`, rotationID, b.PersonID, b.Filename, string(reason), recordedAt)
			if err != nil {
				return fmt.Errorf("failed to record orphan %s/%s: %w", b.PersonID, b.Filename, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Pending(ctx context.Context) ([]models.OrphanBlob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rotation_id, person_id, filename, reason, recorded_at
		FROM orphan_blobs
		WHERE deleted_at IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphans: %w", err)
	}
	defer rows.Close()

	var result []models.OrphanBlob
	for rows.Next() {
		var (
			o      models.OrphanBlob
			reason string
		)
		if err := rows.Scan(&o.ID, &o.RotationID, &o.PersonID, &o.Filename, &reason, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan orphan row: %w", err)
		}
		o.Reason = models.OrphanReason(reason)
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orphan rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) MarkDeleted(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE orphan_blobs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark orphan %d deleted: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
