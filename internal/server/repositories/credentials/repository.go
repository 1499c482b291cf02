// Package credentials persists Amnesia credential sets.
package credentials

import (
	"context"

	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
)

type Repository interface {
	// ReplaceSet deletes the user's current set, if any, and stores set in
	// its place. It must run inside a transaction.
	ReplaceSet(ctx context.Context, set *models.CredentialSet) error
	GetSet(ctx context.Context, userID string) (*models.CredentialSet, error)
	// LockSet reads the set and holds a row lock on it until the enclosing
	// transaction ends.
	LockSet(ctx context.Context, userID string) (*models.CredentialSet, error)
	SetMarks(ctx context.Context, setID string, marks map[int]bool) error
	Exists(ctx context.Context, userID string) (bool, error)
}
