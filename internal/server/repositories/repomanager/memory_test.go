package repomanager

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryManager_SharedStores(t *testing.T) {
	ctx := context.Background()
	var m RepositoryManager = NewMemoryRepositoryManager()
	require.NoError(t, m.RunMigrations(ctx))

	err := m.WithTx(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := repos.SecurityStates().LockForUpdate(ctx, "u-1"); err != nil {
			return err
		}
		return repos.CredentialSets().ReplaceSet(ctx, &models.CredentialSet{UserID: "u-1", K: 2})
	})
	require.NoError(t, err)

	ok, err := m.CredentialSets().Exists(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, ok, "writes made in a transaction are visible outside it")

	// Locks are released when the callback returns.
	err = m.WithTx(ctx, func(ctx context.Context, repos Repositories) error {
		_, err := repos.CredentialSets().LockSet(ctx, "u-1")
		return err
	})
	assert.NoError(t, err)
	assert.NoError(t, m.Close())
}
