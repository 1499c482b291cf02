package notify

import (
	"context"

	"github.com/dmitrijs2005/honeykeeper/internal/logging"
)

// SetChecker reports whether a user still has an active honeyword set.
type SetChecker interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// WarnStaleSets logs a warning when a user with an active set changes the
// legacy password. The old set stays in force until it is re-initialized,
// so the new password will not work.
func WarnStaleSets(sets SetChecker, logger logging.Logger) CredentialChangedHandler {
	return func(ctx context.Context, e CredentialChanged) {
		ok, err := sets.Exists(ctx, e.UserID)
		if err != nil || !ok {
			return
		}
		logger.Warn(ctx, "password changed but honeyword set was not re-initialized",
			"user_id", e.UserID, "username", e.UserName)
	}
}

// LogBreaches writes every breach at error level.
func LogBreaches(logger logging.Logger) BreachHandler {
	return func(ctx context.Context, b Breach) {
		args := []any{"ip_address", b.Meta.IPAddress}
		if b.User != nil {
			args = append(args, "user_id", b.User.ID, "username", b.User.UserName)
		}
		if b.Event != nil {
			args = append(args, "event_id", b.Event.ID)
		}
		logger.Error(ctx, "honeyword submitted", args...)
	}
}
