package repomanager

import (
	"context"

	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/events"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/honeywords"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/memtx"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/userstate"
)

type memoryRepos struct {
	users       *users.MemoryRepository
	credentials *credentials.MemoryRepository
	honeywords  *honeywords.MemoryRepository
	states      *userstate.MemoryRepository
	events      *events.MemoryRepository
}

func (r memoryRepos) Users() users.Repository                { return r.users }
func (r memoryRepos) CredentialSets() credentials.Repository { return r.credentials }
func (r memoryRepos) HoneywordSets() honeywords.Repository   { return r.honeywords }
func (r memoryRepos) SecurityStates() userstate.Repository   { return r.states }
func (r memoryRepos) AuditEvents() events.Repository         { return r.events }

// MemoryRepositoryManager keeps everything in process memory. Data is lost
// on exit.
type MemoryRepositoryManager struct {
	memoryRepos
	keyed *memtx.Keyed
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		memoryRepos: memoryRepos{
			users:       users.NewMemoryRepository(),
			credentials: credentials.NewMemoryRepository(),
			honeywords:  honeywords.NewMemoryRepository(),
			states:      userstate.NewMemoryRepository(),
			events:      events.NewMemoryRepository(),
		},
		keyed: memtx.NewKeyed(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx := m.keyed.Begin()
	defer tx.Release()

	view := m.memoryRepos
	view.credentials = m.credentials.InTx(tx)
	view.states = m.states.InTx(tx)
	return fn(ctx, view)
}

func (m *MemoryRepositoryManager) Close() error { return nil }
