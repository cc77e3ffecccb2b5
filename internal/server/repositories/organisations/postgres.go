// Package organisations provides the PostgreSQL repository of organisations
// and their encryption state.
package organisations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/dbx"
	"github.com/dmitrijs2005/manokeeper/internal/server/models"
)

const columns = `id, name, encryption_enabled, encryption_last_update_at,
		encrypted_verification_key, locked_for_encryption, locked_by`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scan(row *sql.Row) (*models.Organisation, error) {
	var (
		o        models.Organisation
		updated  sql.NullTime
		lockedBy sql.NullString
	)
	err := row.Scan(&o.ID, &o.Name, &o.EncryptionEnabled, &updated,
		&o.EncryptedVerificationKey, &o.LockedForEncryption, &lockedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if updated.Valid {
		t := updated.Time.UTC()
		o.EncryptionLastUpdateAt = &t
	}
	if lockedBy.Valid {
		o.LockedBy = &lockedBy.String
	}
	return &o, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Organisation, error) {
	query := `SELECT ` + columns + ` FROM organisations WHERE id = $1`
	return scan(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Organisation, error) {
	query := `SELECT ` + columns + ` FROM organisations WHERE id = $1 FOR UPDATE`
	return scan(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) SetLock(ctx context.Context, id string, locked bool, lockedBy *string) error {
	query := `UPDATE organisations SET locked_for_encryption = $2, locked_by = $3 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, locked, lockedBy)
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

func (r *PostgresRepository) CommitEncryption(ctx context.Context, id, encryptedVerificationKey string, at time.Time) (*models.Organisation, error) {
	query := `UPDATE organisations SET
			encryption_enabled = TRUE,
			encrypted_verification_key = $2,
			encryption_last_update_at = $3,
			locked_for_encryption = FALSE,
			locked_by = NULL
		WHERE id = $1
		RETURNING ` + columns

	return scan(r.db.QueryRowContext(ctx, query, id, encryptedVerificationKey, at))
}
