// Package honeywords implements the split-knowledge variant: the credential
// store keeps k unmarked hashes and only the honeychecker knows which index
// is real.
package honeywords

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/cryptox"
	"github.com/dmitrijs2005/honeykeeper/internal/generator"
	"github.com/dmitrijs2005/honeykeeper/internal/honeychecker"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/randx"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/repomanager"
)

// NoMatch is returned by MatchIndex when nothing matches.
const NoMatch = -1

type Service struct {
	repos     repomanager.RepositoryManager
	generator generator.HoneywordSource
	hasher    cryptox.PasswordHasher
	checker   honeychecker.Checker
	rng       randx.Source
	logger    logging.Logger
}

func NewService(repos repomanager.RepositoryManager, gen generator.HoneywordSource, hasher cryptox.PasswordHasher,
	checker honeychecker.Checker, rng randx.Source, logger logging.Logger) *Service {
	return &Service{
		repos:     repos,
		generator: gen,
		hasher:    hasher,
		checker:   checker,
		rng:       rng,
		logger:    logger.With("module", "honeywords"),
	}
}

// Initialize stores k hashes for the user and hands the real index to the
// honeychecker exactly once. A honeychecker failure restores the previous
// set and legacy password. realIndex is for deterministic tests only.
func (s *Service) Initialize(ctx context.Context, userID, realPassword string, k int, realIndex *int) error {
	if k < 2 {
		return fmt.Errorf("%w: k must be >= 2, got %d", common.ErrInvalidArgument, k)
	}
	if realIndex != nil && (*realIndex < 0 || *realIndex >= k) {
		return fmt.Errorf("%w: real index must be in [0, %d), got %d", common.ErrInvalidArgument, k, *realIndex)
	}

	generated, err := s.generator.Honeywords(realPassword, k)
	if err != nil {
		return fmt.Errorf("generate honeywords: %w", err)
	}
	words := append([]string(nil), generated...)

	current, seen := -1, 0
	for i, w := range words {
		if w == realPassword {
			current = i
			seen++
		}
	}
	if len(words) != k || seen != 1 {
		return fmt.Errorf("%w: generator must return k candidates with the real password once", common.ErrInvalidArgument)
	}

	idx := 0
	if realIndex != nil {
		idx = *realIndex
	} else {
		idx = s.rng.IntN(k)
	}
	words[current], words[idx] = words[idx], words[current]

	set := &models.HoneywordSet{
		UserID:           userID,
		K:                k,
		AlgorithmVersion: models.HoneywordAlgorithmV1,
		Hashes:           make([]models.HoneywordHash, 0, k),
	}
	for i, w := range words {
		hash, err := s.hasher.Hash(w)
		if err != nil {
			return fmt.Errorf("hash candidate: %w", err)
		}
		set.Hashes = append(set.Hashes, models.HoneywordHash{Index: i, PasswordHash: hash})
	}

	user, err := s.repos.Users().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	previous, err := s.repos.HoneywordSets().GetSet(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("load honeyword set: %w", err)
	}

	err = s.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		if err := repos.Users().SetPasswordHash(ctx, userID, cryptox.UnusablePassword); err != nil {
			return fmt.Errorf("disable legacy password: %w", err)
		}
		if err := repos.HoneywordSets().ReplaceSet(ctx, set); err != nil {
			return fmt.Errorf("store honeyword set: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// The honeychecker call is blocking I/O and runs after commit so no
	// row locks are held across it.
	if err := s.checker.Set(ctx, userID, idx); err != nil {
		err = fmt.Errorf("honeychecker set: %w", err)
		if rbErr := s.restore(ctx, userID, user.PasswordHash, previous); rbErr != nil {
			s.logger.Error(ctx, "restore after honeychecker failure", "user_id", userID, "error", rbErr)
			return errors.Join(err, rbErr)
		}
		return err
	}

	s.logger.Info(ctx, "honeyword set initialized", "user_id", userID, "k", k)
	return nil
}

// restore puts back the state Initialize replaced.
func (s *Service) restore(ctx context.Context, userID, passwordHash string, previous *models.HoneywordSet) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		if previous != nil {
			if err := repos.HoneywordSets().ReplaceSet(ctx, previous); err != nil {
				return fmt.Errorf("restore honeyword set: %w", err)
			}
		} else if err := repos.HoneywordSets().DeleteSet(ctx, userID); err != nil {
			return fmt.Errorf("delete honeyword set: %w", err)
		}
		if err := repos.Users().SetPasswordHash(ctx, userID, passwordHash); err != nil {
			return fmt.Errorf("restore password: %w", err)
		}
		return nil
	})
}

// MatchIndex returns the index of the first stored hash matching password,
// or NoMatch. A user without a set never matches.
func (s *Service) MatchIndex(ctx context.Context, userID, password string) (int, error) {
	set, err := s.repos.HoneywordSets().GetSet(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return NoMatch, nil
		}
		return NoMatch, err
	}

	for _, h := range set.Hashes {
		ok, err := cryptox.Verify(h.PasswordHash, password)
		if err != nil {
			s.logger.Warn(ctx, "unreadable honeyword hash", "user_id", userID, "index", h.Index, "error", err)
			continue
		}
		if ok {
			return h.Index, nil
		}
	}
	return NoMatch, nil
}

func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	return s.repos.HoneywordSets().Exists(ctx, userID)
}
