package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/manokeeper/internal/client/migrations"
	"github.com/dmitrijs2005/manokeeper/internal/client/repositories/orphans"
	"github.com/dmitrijs2005/manokeeper/internal/filex"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

type Repositories struct {
	Orphans orphans.Repository
	DB      *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the local journal at dsn and
// brings its schema up to date.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	if err := filex.EnsureParentDir(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Orphans: orphans.NewSQLiteRepository(db),
		DB:      db,
	}, nil
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}
