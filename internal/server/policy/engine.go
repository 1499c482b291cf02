// Package policy owns UserSecurityState: forced resets and lockouts with
// exponential backoff. Every mutation is a read-modify-write under the
// state row lock.
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/repomanager"
)

// Action is what happens after a honeyword is submitted.
type Action string

const (
	ActionLog   Action = "log"
	ActionReset Action = "reset"
	ActionLock  Action = "lock"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionLog, ActionReset, ActionLock:
		return a, nil
	}
	return "", fmt.Errorf("%w: on_honeyword must be log, reset or lock, got %q", common.ErrInvalidArgument, s)
}

// maxDoublings caps the exponent of the backoff.
const maxDoublings = 10

type Engine struct {
	repos  repomanager.RepositoryManager
	now    func() time.Time
	logger logging.Logger
}

func NewEngine(repos repomanager.RepositoryManager, logger logging.Logger) *Engine {
	return &Engine{repos: repos, now: time.Now, logger: logger.With("module", "policy")}
}

// State returns the user's state, creating the default one on first use.
func (e *Engine) State(ctx context.Context, userID string) (*models.UserSecurityState, error) {
	return e.repos.SecurityStates().GetOrCreate(ctx, userID)
}

func (e *Engine) IsLocked(ctx context.Context, userID string) (bool, error) {
	st, err := e.State(ctx, userID)
	if err != nil {
		return false, err
	}
	return st.IsLocked(e.now()), nil
}

// Gate runs before any credential check. It returns common.ErrLocked or
// common.ErrMustReset when the attempt must be refused.
func (e *Engine) Gate(ctx context.Context, userID string) error {
	st, err := e.State(ctx, userID)
	if err != nil {
		return err
	}
	if st.IsLocked(e.now()) {
		return common.ErrLocked
	}
	if st.MustReset {
		return common.ErrMustReset
	}
	return nil
}

// ApplyReset sets the sticky must_reset flag.
func (e *Engine) ApplyReset(ctx context.Context, userID string) error {
	return e.update(ctx, userID, func(st *models.UserSecurityState) bool {
		if st.MustReset {
			return false
		}
		st.MustReset = true
		return true
	})
}

// LockDuration is min(base * 2^min(lockCount, 10), max).
func LockDuration(lockCount int, base, max time.Duration) time.Duration {
	n := lockCount
	if n > maxDoublings {
		n = maxDoublings
	}
	if n < 0 {
		n = 0
	}
	d := base * time.Duration(1<<n)
	if d > max || d < 0 {
		return max
	}
	return d
}

// ApplyLock locks the user for the next backoff step and returns the new
// locked_until.
func (e *Engine) ApplyLock(ctx context.Context, userID string, base, max time.Duration) (time.Time, error) {
	var until time.Time
	err := e.update(ctx, userID, func(st *models.UserSecurityState) bool {
		now := e.now()
		until = now.Add(LockDuration(st.LockCount, base, max))
		st.LockCount++
		st.LastLockAt = &now
		st.LockedUntil = &until
		return true
	})
	if err != nil {
		return time.Time{}, err
	}
	return until, nil
}

// ClearReset is the administrative counterpart of ApplyReset.
func (e *Engine) ClearReset(ctx context.Context, userID string) error {
	return e.update(ctx, userID, func(st *models.UserSecurityState) bool {
		if !st.MustReset {
			return false
		}
		st.MustReset = false
		return true
	})
}

// Unlock lifts an active lock and restarts the backoff sequence.
func (e *Engine) Unlock(ctx context.Context, userID string) error {
	return e.update(ctx, userID, func(st *models.UserSecurityState) bool {
		st.LockedUntil = nil
		st.LockCount = 0
		return true
	})
}

func (e *Engine) update(ctx context.Context, userID string, mutate func(*models.UserSecurityState) bool) error {
	return e.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		st, err := repos.SecurityStates().LockForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if !mutate(st) {
			return nil
		}
		return repos.SecurityStates().Save(ctx, st)
	})
}
