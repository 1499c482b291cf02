package userstate

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/memtx"
)

type memoryStore struct {
	mu     sync.Mutex
	states map[string]models.UserSecurityState
}

type MemoryRepository struct {
	store *memoryStore
	tx    *memtx.Tx
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: &memoryStore{states: map[string]models.UserSecurityState{}}}
}

func (r *MemoryRepository) InTx(tx *memtx.Tx) *MemoryRepository {
	return &MemoryRepository{store: r.store, tx: tx}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneState(st models.UserSecurityState) *models.UserSecurityState {
	st.LockedUntil = copyTime(st.LockedUntil)
	st.LastLockAt = copyTime(st.LastLockAt)
	return &st
}

func (r *MemoryRepository) GetOrCreate(_ context.Context, userID string) (*models.UserSecurityState, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	st, ok := r.store.states[userID]
	if !ok {
		st = models.UserSecurityState{UserID: userID}
		r.store.states[userID] = st
	}
	return cloneState(st), nil
}

func (r *MemoryRepository) LockForUpdate(ctx context.Context, userID string) (*models.UserSecurityState, error) {
	r.tx.Lock("state:" + userID)
	return r.GetOrCreate(ctx, userID)
}

func (r *MemoryRepository) Save(_ context.Context, st *models.UserSecurityState) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.states[st.UserID] = *cloneState(*st)
	return nil
}
