// Package honeychecker holds the split-knowledge half of the honeyword
// scheme: for each user, the index of the real password within the stored
// hash list. It can run in-process next to the credential store or as a
// separate service reached over HTTP.
package honeychecker

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
)

// Checker is what the authentication side talks to.
type Checker interface {
	// Set upserts the real index for a user.
	Set(ctx context.Context, userID string, realIndex int) error
	// Verify reports whether candidate is the real index. It returns
	// common.ErrorNotFound for a user with no record.
	Verify(ctx context.Context, userID string, candidate int) (bool, error)
}

// Store persists honeychecker records.
type Store interface {
	Upsert(ctx context.Context, userID string, realIndex int) error
	RealIndex(ctx context.Context, userID string) (int, error)
}

// Local answers from a Store in the same process. The index then shares a
// trust domain with the hashes, which is fine for tests and small setups.
type Local struct {
	store Store
}

func NewLocal(store Store) *Local {
	return &Local{store: store}
}

func (l *Local) Set(ctx context.Context, userID string, realIndex int) error {
	if userID == "" || realIndex < 0 {
		return fmt.Errorf("%w: user id and a non-negative index are required", common.ErrInvalidArgument)
	}
	return l.store.Upsert(ctx, userID, realIndex)
}

func (l *Local) Verify(ctx context.Context, userID string, candidate int) (bool, error) {
	idx, err := l.store.RealIndex(ctx, userID)
	if err != nil {
		return false, err
	}
	return idx == candidate, nil
}
