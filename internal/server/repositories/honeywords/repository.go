// Package honeywords persists honeyword hash sets for the split-knowledge
// mode. Sets carry no marks and no hint of the real index.
package honeywords

import (
	"context"

	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
)

type Repository interface {
	ReplaceSet(ctx context.Context, set *models.HoneywordSet) error
	GetSet(ctx context.Context, userID string) (*models.HoneywordSet, error)
	Exists(ctx context.Context, userID string) (bool, error)
	// DeleteSet removes the user's set. Deleting a missing set is not an error.
	DeleteSet(ctx context.Context, userID string) error
}
