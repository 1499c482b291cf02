// Package userstate persists per-user policy state (forced reset, lockout).
package userstate

import (
	"context"

	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
)

type Repository interface {
	// GetOrCreate returns the state, inserting a default row first if the
	// user has none yet.
	GetOrCreate(ctx context.Context, userID string) (*models.UserSecurityState, error)
	// LockForUpdate is GetOrCreate plus a row lock held until the enclosing
	// transaction ends.
	LockForUpdate(ctx context.Context, userID string) (*models.UserSecurityState, error)
	Save(ctx context.Context, state *models.UserSecurityState) error
}
