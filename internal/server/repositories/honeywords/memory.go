package honeywords

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu   sync.RWMutex
	sets map[string]models.HoneywordSet
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sets: map[string]models.HoneywordSet{}}
}

func (r *MemoryRepository) ReplaceSet(_ context.Context, set *models.HoneywordSet) error {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	set.CreatedAt = time.Now()

	stored := *set
	stored.Hashes = append([]models.HoneywordHash(nil), set.Hashes...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[set.UserID] = stored
	return nil
}

func (r *MemoryRepository) GetSet(_ context.Context, userID string) (*models.HoneywordSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sets[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	s.Hashes = append([]models.HoneywordHash(nil), s.Hashes...)
	return &s, nil
}

func (r *MemoryRepository) Exists(_ context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sets[userID]
	return ok, nil
}

func (r *MemoryRepository) DeleteSet(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sets, userID)
	return nil
}
