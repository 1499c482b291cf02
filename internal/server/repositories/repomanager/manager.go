package repomanager

import (
	"context"

	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/events"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/honeywords"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/userstate"
)

// Repositories is one consistent view of every store. Views handed to a
// WithTx callback share that transaction.
type Repositories interface {
	Users() users.Repository
	CredentialSets() credentials.Repository
	HoneywordSets() honeywords.Repository
	SecurityStates() userstate.Repository
	AuditEvents() events.Repository
}

type RepositoryManager interface {
	Repositories
	RunMigrations(ctx context.Context) error
	// WithTx runs fn in a transaction. Row locks taken through the passed
	// view are held until fn returns.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Close() error
}
