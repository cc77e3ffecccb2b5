// Package services contains application services for the manokeeper CLI.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/client/client"
	"github.com/dmitrijs2005/manokeeper/internal/client/models"
	"github.com/dmitrijs2005/manokeeper/internal/client/repositories/orphans"
	"github.com/dmitrijs2005/manokeeper/internal/logging"
)

// BlobDeleter removes a stored document blob.
type BlobDeleter interface {
	DeleteDocument(ctx context.Context, personID, filename string) error
}

// CleanupService deletes journaled orphan blobs. It is never called by a
// rotation; users run it explicitly once they trust the new key.
type CleanupService struct {
	repo    orphans.Repository
	deleter BlobDeleter
	log     logging.Logger
	now     func() time.Time
}

func NewCleanupService(repo orphans.Repository, deleter BlobDeleter, log logging.Logger) *CleanupService {
	return &CleanupService{repo: repo, deleter: deleter, log: log, now: time.Now}
}

type CleanupReport struct {
	Deleted int
	// Missing blobs were already gone on the server.
	Missing int
	Failed  int
}

func (s *CleanupService) Pending(ctx context.Context) ([]models.OrphanBlob, error) {
	return s.repo.Pending(ctx)
}

// Run deletes every pending blob. A failed deletion stays pending for the
// next run.
func (s *CleanupService) Run(ctx context.Context) (*CleanupReport, error) {
	pending, err := s.repo.Pending(ctx)
	if err != nil {
		return nil, err
	}

	report := &CleanupReport{}
	for _, o := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		err := s.deleter.DeleteDocument(ctx, o.PersonID, o.Filename)
		switch {
		case err == nil:
			report.Deleted++
		case errors.Is(err, client.ErrNotFound):
			report.Missing++
		default:
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			s.log.Warn(ctx, "could not delete orphan blob", "person", o.PersonID, "file", o.Filename, "error", err)
			continue
		}

		if err := s.repo.MarkDeleted(ctx, o.ID, s.now()); err != nil {
			return report, err
		}
	}

	s.log.Info(ctx, "orphan cleanup done", "deleted", report.Deleted, "missing", report.Missing, "failed", report.Failed)
	return report, nil
}
