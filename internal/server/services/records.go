package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/server/auth"
	"github.com/dmitrijs2005/manokeeper/internal/server/models"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/repomanager"
)

// DefaultPageSize applies when a list request carries no limit.
const DefaultPageSize = 1000

type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewRecordService(db *sql.DB, repomanager repomanager.RepositoryManager) *RecordService {
	return &RecordService{db: db, repomanager: repomanager}
}

func (s *RecordService) List(ctx context.Context, id auth.Identity, organisationID string, c models.Collection, opts models.ListOptions) ([]models.Record, error) {
	if err := requireOrganisation(id, organisationID); err != nil {
		return nil, err
	}
	if opts.Limit < 0 || opts.Page < 0 || opts.After < 0 {
		return nil, fmt.Errorf("%w: negative paging value", common.ErrValidation)
	}

	limit := opts.Limit
	if limit == 0 {
		limit = DefaultPageSize
	}
	if opts.Page > 0 && limit > math.MaxInt64/opts.Page {
		return nil, fmt.Errorf("%w: page out of range", common.ErrValidation)
	}

	recs, err := s.repomanager.Records(s.db).List(ctx, records.Query{
		OrganisationID: organisationID,
		Collection:     c,
		UpdatedAfter:   time.UnixMilli(opts.After).UTC(),
		WithDeleted:    opts.WithDeleted,
		Limit:          limit,
		Offset:         opts.Page * limit,
	})
	if err != nil {
		return nil, err
	}
	for i := range recs {
		recs[i].Organisation = organisationID
	}
	return recs, nil
}
