// Package amnesia implements the Amnesia honeyword scheme. Each user holds k
// hashed candidates. The real one is always marked; every other entry is
// marked at random, and marks are redrawn after some successful logins so the
// marked subset keeps moving. A login that matches an unmarked entry can only
// come from someone who cracked the stored hashes.
package amnesia

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/cryptox"
	"github.com/dmitrijs2005/honeykeeper/internal/generator"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/randx"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/repomanager"
)

// Result is the outcome of Check.
type Result string

const (
	Invalid Result = "invalid"
	Breach  Result = "breach"
	Success Result = "success"
)

// Params configures one initialization. RealIndex pins the position of the
// real password and exists for deterministic tests only; it is never stored.
type Params struct {
	K         int
	PMark     float64
	PRemark   float64
	RealIndex *int
}

// DefaultParams are used when nothing is configured.
func DefaultParams() Params {
	return Params{K: 20, PMark: 0.1, PRemark: 0.01}
}

func (p Params) Validate() error {
	if p.K < 2 {
		return fmt.Errorf("%w: k must be >= 2, got %d", common.ErrInvalidArgument, p.K)
	}
	if p.PMark < 0 || p.PMark > 1 {
		return fmt.Errorf("%w: p_mark must be in [0, 1], got %v", common.ErrInvalidArgument, p.PMark)
	}
	if p.PRemark < 0 || p.PRemark > 1 {
		return fmt.Errorf("%w: p_remark must be in [0, 1], got %v", common.ErrInvalidArgument, p.PRemark)
	}
	if p.RealIndex != nil && (*p.RealIndex < 0 || *p.RealIndex >= p.K) {
		return fmt.Errorf("%w: real index must be in [0, %d), got %d", common.ErrInvalidArgument, p.K, *p.RealIndex)
	}
	return nil
}

type Service struct {
	repos     repomanager.RepositoryManager
	generator generator.HoneywordSource
	hasher    cryptox.PasswordHasher
	rng       randx.Source
	defaults  Params
	logger    logging.Logger
	onRemark  func()
}

// NewService builds the service. rng must be randx.Crypto() outside tests.
func NewService(repos repomanager.RepositoryManager, gen generator.HoneywordSource, hasher cryptox.PasswordHasher,
	rng randx.Source, defaults Params, logger logging.Logger) *Service {
	return &Service{
		repos:     repos,
		generator: gen,
		hasher:    hasher,
		rng:       rng,
		defaults:  defaults,
		logger:    logger.With("module", "amnesia"),
	}
}

// OnRemark registers f to be called after every committed remark round.
func (s *Service) OnRemark(f func()) {
	s.onRemark = f
}

// InitializeFromConfig initializes with the configured k, p_mark and p_remark.
func (s *Service) InitializeFromConfig(ctx context.Context, userID, realPassword string, realIndex *int) error {
	p := s.defaults
	p.RealIndex = realIndex
	return s.Initialize(ctx, userID, realPassword, p)
}

// Initialize replaces the user's credential set and disables the legacy
// password. Nothing is persisted unless every step succeeds.
func (s *Service) Initialize(ctx context.Context, userID, realPassword string, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	generated, err := s.generator.Honeywords(realPassword, p.K)
	if err != nil {
		return fmt.Errorf("generate honeywords: %w", err)
	}
	if len(generated) != p.K {
		return fmt.Errorf("%w: generator returned %d candidates, want %d", common.ErrInvalidArgument, len(generated), p.K)
	}

	words := append([]string(nil), generated...)
	current, seen := -1, 0
	for i, w := range words {
		if w == realPassword {
			current = i
			seen++
		}
	}
	if seen != 1 {
		return fmt.Errorf("%w: generator must return the real password exactly once", common.ErrInvalidArgument)
	}

	realIndex := 0
	if p.RealIndex != nil {
		realIndex = *p.RealIndex
	} else {
		realIndex = s.rng.IntN(p.K)
	}
	words[current], words[realIndex] = words[realIndex], words[current]

	set := &models.CredentialSet{
		UserID:           userID,
		K:                p.K,
		PMark:            p.PMark,
		PRemark:          p.PRemark,
		AlgorithmVersion: models.AmnesiaAlgorithmV1,
		Credentials:      make([]models.Credential, 0, p.K),
	}
	for i, w := range words {
		hash, err := s.hasher.Hash(w)
		if err != nil {
			return fmt.Errorf("hash candidate: %w", err)
		}
		set.Credentials = append(set.Credentials, models.Credential{
			Index:        i,
			PasswordHash: hash,
			Marked:       i == realIndex || randx.Bernoulli(s.rng, p.PMark),
		})
	}

	err = s.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		if err := repos.Users().SetPasswordHash(ctx, userID, cryptox.UnusablePassword); err != nil {
			return fmt.Errorf("disable legacy password: %w", err)
		}
		if err := repos.CredentialSets().ReplaceSet(ctx, set); err != nil {
			return fmt.Errorf("store credential set: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "amnesia set initialized", "user_id", userID, "k", p.K)
	return nil
}

// Check classifies password against the user's set. A user without a set
// gets Invalid and no error. Errors are storage failures; the returned
// Result is Invalid in that case.
func (s *Service) Check(ctx context.Context, userID, password string) (Result, error) {
	set, err := s.repos.CredentialSets().GetSet(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return Invalid, nil
		}
		return Invalid, err
	}

	matched, ok := s.scan(ctx, set, password)
	if !ok {
		return Invalid, nil
	}
	if !matched.Marked {
		return Breach, nil
	}
	if !randx.Bernoulli(s.rng, set.PRemark) {
		return Success, nil
	}
	return s.remark(ctx, set, matched.Index)
}

func (s *Service) scan(ctx context.Context, set *models.CredentialSet, password string) (models.Credential, bool) {
	for _, c := range set.Credentials {
		ok, err := cryptox.Verify(c.PasswordHash, password)
		if err != nil {
			s.logger.Warn(ctx, "unreadable credential hash", "user_id", set.UserID, "index", c.Index, "error", err)
			continue
		}
		if ok {
			return c, true
		}
	}
	return models.Credential{}, false
}

// remark redraws the marks of every entry except the matched one under the
// set's row lock. The matched entry is re-read first: if a concurrent remark
// unmarked it after the unlocked scan, the attempt is a breach.
func (s *Service) remark(ctx context.Context, scanned *models.CredentialSet, index int) (Result, error) {
	result := Success

	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		set, err := repos.CredentialSets().LockSet(ctx, scanned.UserID)
		if errors.Is(err, common.ErrorNotFound) {
			result = Invalid
			return nil
		}
		if err != nil {
			return err
		}

		// replaced by a re-initialization since the scan
		if set.ID != scanned.ID {
			result = Invalid
			return nil
		}

		matched, ok := set.Credential(index)
		if !ok {
			result = Invalid
			return nil
		}
		if !matched.Marked {
			result = Breach
			return nil
		}

		marks := make(map[int]bool, len(set.Credentials))
		for _, c := range set.Credentials {
			if c.Index == index {
				continue
			}
			marks[c.Index] = randx.Bernoulli(s.rng, set.PMark)
		}
		if len(marks) == 0 {
			return nil
		}
		return repos.CredentialSets().SetMarks(ctx, set.ID, marks)
	})
	if err != nil {
		return Invalid, fmt.Errorf("remark: %w", err)
	}

	if result == Success {
		s.logger.Debug(ctx, "marks redrawn", "user_id", scanned.UserID)
		if s.onRemark != nil {
			s.onRemark()
		}
	}
	return result, nil
}

// Summary is what administrators may see about a set. It never includes
// hashes.
type Summary struct {
	SetID            string
	UserID           string
	K                int
	PMark            float64
	PRemark          float64
	AlgorithmVersion string
	Marked           int
	CreatedAt        time.Time
}

// Inspect returns ErrNotInitialized when the user has no set.
func (s *Service) Inspect(ctx context.Context, userID string) (*Summary, error) {
	set, err := s.repos.CredentialSets().GetSet(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotInitialized
		}
		return nil, err
	}
	return &Summary{
		SetID:            set.ID,
		UserID:           set.UserID,
		K:                set.K,
		PMark:            set.PMark,
		PRemark:          set.PRemark,
		AlgorithmVersion: set.AlgorithmVersion,
		Marked:           set.MarkedCount(),
		CreatedAt:        set.CreatedAt,
	}, nil
}

// Exists reports whether the user has an active set.
func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	return s.repos.CredentialSets().Exists(ctx, userID)
}
