// Package repomanager hands out repositories bound to a database handle.
// Because repositories accept dbx.DBTX, the same manager serves plain
// connections and transactions alike.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/cuppie/cuppie-auth/internal/dbx"
	"github.com/cuppie/cuppie-auth/internal/server/repositories/refreshtokens"
	"github.com/cuppie/cuppie-auth/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
