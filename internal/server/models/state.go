package models

import "time"

// UserSecurityState is the per-user policy state. It is created lazily on
// the first policy check and only the policy engine mutates it.
type UserSecurityState struct {
	UserID      string
	MustReset   bool
	LockedUntil *time.Time
	LockCount   int
	LastLockAt  *time.Time
}

// IsLocked reports whether the lock is still active at now.
func (s *UserSecurityState) IsLocked(now time.Time) bool {
	return s.LockedUntil != nil && s.LockedUntil.After(now)
}
