package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/manokeeper/internal/dbx"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/documents"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/organisations"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a *sql.DB or an open *sql.Tx,
// so services can run several of them in one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Organisations(db dbx.DBTX) organisations.Repository
	Users(db dbx.DBTX) users.Repository
	Records(db dbx.DBTX) records.Repository
	Documents(db dbx.DBTX) documents.Repository
}
