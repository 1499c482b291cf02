// Package users stores identity records consumed by the authenticator.
package users

import (
	"context"

	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// SetPasswordHash replaces the legacy direct-authentication hash.
	SetPasswordHash(ctx context.Context, id string, hash string) error
}
