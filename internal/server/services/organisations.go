package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/dbx"
	"github.com/dmitrijs2005/manokeeper/internal/server/auth"
	"github.com/dmitrijs2005/manokeeper/internal/server/models"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/repomanager"
)

type OrganisationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewOrganisationService(db *sql.DB, repomanager repomanager.RepositoryManager) *OrganisationService {
	return &OrganisationService{db: db, repomanager: repomanager, now: time.Now}
}

func (s *OrganisationService) Get(ctx context.Context, id auth.Identity, organisationID string) (*models.Organisation, error) {
	if err := requireOrganisation(id, organisationID); err != nil {
		return nil, err
	}
	return s.repomanager.Organisations(s.db).GetByID(ctx, organisationID)
}

func lockedByOther(org *models.Organisation, userID string) bool {
	return org.LockedForEncryption && org.LockedBy != nil && *org.LockedBy != userID
}

// SetLock takes or releases the encryption lock. Only administrators may do
// either; a lock held by another user cannot be taken over.
func (s *OrganisationService) SetLock(ctx context.Context, id auth.Identity, organisationID string, locked bool, lockedBy *string) (*models.Organisation, error) {
	if err := requireOrganisation(id, organisationID); err != nil {
		return nil, err
	}
	if err := requireAdmin(id); err != nil {
		return nil, err
	}

	return dbx.InTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Organisation, error) {
		repo := s.repomanager.Organisations(tx)

		org, err := repo.GetForUpdate(ctx, organisationID)
		if err != nil {
			return nil, err
		}
		if locked && lockedByOther(org, id.UserID) {
			return nil, common.ErrLocked
		}

		if !locked {
			lockedBy = nil
		} else if lockedBy == nil || *lockedBy == "" {
			lockedBy = &id.UserID
		}
		if err := repo.SetLock(ctx, organisationID, locked, lockedBy); err != nil {
			return nil, err
		}

		org.LockedForEncryption = locked
		org.LockedBy = lockedBy
		return org, nil
	})
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Truncate(time.Microsecond).Equal(b.Truncate(time.Microsecond))
}

// Encrypt replaces every record of the batch and the verification key in one
// transaction. The batch is refused with common.ErrVersionConflict when the
// organisation's key changed since the client read it.
func (s *OrganisationService) Encrypt(ctx context.Context, id auth.Identity, batch *models.EncryptBatch) (*models.Organisation, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	if batch.EncryptedVerificationKey == "" {
		return nil, fmt.Errorf("%w: missing encryptedVerificationKey", common.ErrValidation)
	}

	return dbx.InTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Organisation, error) {
		orgs := s.repomanager.Organisations(tx)
		records := s.repomanager.Records(tx)

		org, err := orgs.GetForUpdate(ctx, id.OrganisationID)
		if err != nil {
			return nil, err
		}
		if org.EncryptionEnabled && !id.HealthcareProfessional {
			return nil, ErrForbidden
		}
		if lockedByOther(org, id.UserID) {
			return nil, common.ErrLocked
		}
		if !sameInstant(org.EncryptionLastUpdateAt, batch.Watermark) {
			return nil, common.ErrVersionConflict
		}

		at := s.now().UTC().Truncate(time.Microsecond)
		for _, c := range models.Collections() {
			for i := range batch.Records[c] {
				rec := batch.Records[c][i]
				rec.Collection = c
				rec.Organisation = org.ID
				if err := records.UpdateEncrypted(ctx, &rec, at); err != nil {
					return nil, err
				}
			}
		}

		return orgs.CommitEncryption(ctx, org.ID, batch.EncryptedVerificationKey, at)
	})
}
