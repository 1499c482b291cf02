// Package services contains server-side business logic. This file implements
// UserService, the identity side of the system: it owns user records and
// legacy password hashes, announces credential changes and mints access
// tokens for logins the authenticator accepted.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/cryptox"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/server/auth"
	"github.com/dmitrijs2005/honeykeeper/internal/server/config"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/dmitrijs2005/honeykeeper/internal/server/notify"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/repomanager"
)

type UserService struct {
	repomanager                 repomanager.RepositoryManager
	hasher                      cryptox.PasswordHasher
	bus                         *notify.Bus
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	logger                      logging.Logger
}

// NewUserService constructs a UserService using repositories and server config.
// bus may be nil.
func NewUserService(m repomanager.RepositoryManager, hasher cryptox.PasswordHasher, bus *notify.Bus,
	cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		repomanager:                 m,
		hasher:                      hasher,
		bus:                         bus,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		logger:                      logger.With("module", "users"),
	}
}

// Register creates a user. An empty password leaves the account without a
// usable legacy hash, which is the normal state for honeyword users.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", common.ErrInvalidArgument)
	}

	var hash string
	if password != "" {
		var err error
		if hash, err = s.hasher.Hash(password); err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
	}

	u, err := s.repomanager.Users().Create(ctx, &models.User{UserName: username, PasswordHash: hash})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	s.logger.Info(ctx, "user registered", "user_id", u.ID, "username", u.UserName)
	return u, nil
}

// Lookup returns the user or common.ErrorNotFound.
func (s *UserService) Lookup(ctx context.Context, username string) (*models.User, error) {
	u, err := s.repomanager.Users().GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return u, nil
}

// ChangePassword replaces the legacy password hash and publishes
// notify.CredentialChanged. It does not touch honeyword sets.
func (s *UserService) ChangePassword(ctx context.Context, userID, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", common.ErrInvalidArgument)
	}
	u, err := s.repomanager.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := s.repomanager.Users().SetPasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	if s.bus != nil {
		s.bus.PublishCredentialChanged(ctx, notify.CredentialChanged{UserID: u.ID, UserName: u.UserName})
	}
	return nil
}

// IssueToken returns a signed access token for an authenticated user.
func (s *UserService) IssueToken(userID string) (string, error) {
	token, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// UserIDFromToken validates an access token.
func (s *UserService) UserIDFromToken(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.jwtSecret)
}
