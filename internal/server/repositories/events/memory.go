package events

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	events []models.AuditEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Append(_ context.Context, e *models.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *MemoryRepository) ListSince(_ context.Context, since time.Time, limit int) ([]models.AuditEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.AuditEvent
	for _, e := range r.events {
		if e.CreatedAt.Before(since) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
