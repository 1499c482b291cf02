package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/memtx"
	"github.com/google/uuid"
)

type memoryStore struct {
	mu   sync.RWMutex
	sets map[string]models.CredentialSet
}

// MemoryRepository keeps sets keyed by user id. Views created with InTx share
// the store and take their row locks through the transaction.
type MemoryRepository struct {
	store *memoryStore
	tx    *memtx.Tx
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: &memoryStore{sets: map[string]models.CredentialSet{}}}
}

func (r *MemoryRepository) InTx(tx *memtx.Tx) *MemoryRepository {
	return &MemoryRepository{store: r.store, tx: tx}
}

func lockKey(userID string) string { return "credentials:" + userID }

func clone(s models.CredentialSet) *models.CredentialSet {
	s.Credentials = append([]models.Credential(nil), s.Credentials...)
	return &s
}

func (r *MemoryRepository) ReplaceSet(_ context.Context, set *models.CredentialSet) error {
	r.tx.Lock(lockKey(set.UserID))

	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	set.CreatedAt = time.Now()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.sets[set.UserID] = *clone(*set)
	return nil
}

func (r *MemoryRepository) GetSet(_ context.Context, userID string) (*models.CredentialSet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	s, ok := r.store.sets[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(s), nil
}

func (r *MemoryRepository) LockSet(ctx context.Context, userID string) (*models.CredentialSet, error) {
	r.tx.Lock(lockKey(userID))
	return r.GetSet(ctx, userID)
}

func (r *MemoryRepository) SetMarks(_ context.Context, setID string, marks map[int]bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for userID, s := range r.store.sets {
		if s.ID != setID {
			continue
		}
		updated := clone(s)
		for i := range updated.Credentials {
			if m, ok := marks[updated.Credentials[i].Index]; ok {
				updated.Credentials[i].Marked = m
			}
		}
		r.store.sets[userID] = *updated
		return nil
	}
	return common.ErrorNotFound
}

func (r *MemoryRepository) Exists(_ context.Context, userID string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.sets[userID]
	return ok, nil
}
