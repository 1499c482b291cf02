// Package events is the append-only audit log store.
package events

import (
	"context"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, event *models.AuditEvent) error
	// ListSince returns events created at or after since, oldest first.
	// A non-positive limit means no limit.
	ListSince(ctx context.Context, since time.Time, limit int) ([]models.AuditEvent, error)
}
