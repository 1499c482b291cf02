// Package auth decides login attempts. It composes the credential check of
// the configured scheme with the policy gate, breach actions and the audit
// log, and issues access tokens for accepted logins.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/cryptox"
	"github.com/dmitrijs2005/honeykeeper/internal/honeychecker"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/server/amnesia"
	"github.com/dmitrijs2005/honeykeeper/internal/server/audit"
	"github.com/dmitrijs2005/honeykeeper/internal/server/honeywords"
	"github.com/dmitrijs2005/honeykeeper/internal/server/metrics"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/dmitrijs2005/honeykeeper/internal/server/notify"
	"github.com/dmitrijs2005/honeykeeper/internal/server/policy"
)

// Mode selects the credential scheme.
type Mode string

const (
	ModeAmnesia      Mode = "amnesia"
	ModeHoneychecker Mode = "honeychecker"
)

// Attempt is one login request.
type Attempt struct {
	UserName  string
	Password  string
	IPAddress string
	UserAgent string
}

// Options mirror the server configuration. FailClosed rejects an attempt
// when the honeychecker cannot answer; turning it off accepts such attempts
// and is not recommended. AllowLegacy lets users without a honeyword set log
// in with their plain password hash.
type Options struct {
	Mode           Mode
	OnHoneyword    policy.Action
	LockBase       time.Duration
	LockMax        time.Duration
	FailClosed     bool
	LogRealSuccess bool
	AllowLegacy    bool
}

type UserLookup interface {
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
}

type AmnesiaChecker interface {
	Check(ctx context.Context, userID, password string) (amnesia.Result, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

type IndexMatcher interface {
	MatchIndex(ctx context.Context, userID, password string) (int, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

// Gatekeeper is the part of the policy engine the authenticator drives.
type Gatekeeper interface {
	Gate(ctx context.Context, userID string) error
	ApplyReset(ctx context.Context, userID string) error
	ApplyLock(ctx context.Context, userID string, base, max time.Duration) (time.Time, error)
}

type EventRecorder interface {
	Record(ctx context.Context, userID, userName string, outcome models.Outcome, meta audit.Meta) (*models.AuditEvent, error)
}

type Authenticator struct {
	opts     Options
	users    UserLookup
	amnesia  AmnesiaChecker
	matcher  IndexMatcher
	checker  honeychecker.Checker
	policy   Gatekeeper
	recorder EventRecorder
	bus      *notify.Bus
	metrics  *metrics.Metrics
	logger   logging.Logger
}

// Deps groups the collaborators. Amnesia is required in amnesia mode,
// Matcher and Checker in honeychecker mode. Bus and Metrics may be nil.
type Deps struct {
	Users    UserLookup
	Amnesia  AmnesiaChecker
	Matcher  IndexMatcher
	Checker  honeychecker.Checker
	Policy   Gatekeeper
	Recorder EventRecorder
	Bus      *notify.Bus
	Metrics  *metrics.Metrics
}

func NewAuthenticator(opts Options, deps Deps, logger logging.Logger) (*Authenticator, error) {
	switch opts.Mode {
	case ModeAmnesia:
		if deps.Amnesia == nil {
			return nil, errors.New("amnesia mode requires an amnesia checker")
		}
	case ModeHoneychecker:
		if deps.Matcher == nil || deps.Checker == nil {
			return nil, errors.New("honeychecker mode requires a matcher and a honeychecker")
		}
	default:
		return nil, errors.New("unknown auth mode " + string(opts.Mode))
	}
	if deps.Users == nil || deps.Policy == nil || deps.Recorder == nil {
		return nil, errors.New("users, policy and recorder are required")
	}

	return &Authenticator{
		opts:     opts,
		users:    deps.Users,
		amnesia:  deps.Amnesia,
		matcher:  deps.Matcher,
		checker:  deps.Checker,
		policy:   deps.Policy,
		recorder: deps.Recorder,
		bus:      deps.Bus,
		metrics:  deps.Metrics,
		logger:   logger.With("module", "auth"),
	}, nil
}

// Authenticate returns the user on success. Every rejection is
// common.ErrorUnauthorized, or common.ErrorInternal when storage failed; the
// reason is never exposed to the caller.
func (a *Authenticator) Authenticate(ctx context.Context, at Attempt) (*models.User, error) {
	meta := audit.Meta{IPAddress: at.IPAddress, UserAgent: at.UserAgent}

	user, err := a.users.GetUserByLogin(ctx, at.UserName)
	if err != nil {
		a.record(ctx, "", at.UserName, models.OutcomeInvalid, meta)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		a.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if err := a.policy.Gate(ctx, user.ID); err != nil {
		a.record(ctx, user.ID, at.UserName, models.OutcomeInvalid, meta)
		if errors.Is(err, common.ErrLocked) || errors.Is(err, common.ErrMustReset) {
			a.logger.Info(ctx, "login refused by policy", "user_id", user.ID, "reason", err.Error())
			return nil, common.ErrorUnauthorized
		}
		a.logger.Error(ctx, "policy gate failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	outcome, err := a.verify(ctx, user, at.Password)
	if err != nil {
		a.logger.Error(ctx, "credential check failed", "user_id", user.ID, "error", err)
		a.record(ctx, user.ID, at.UserName, models.OutcomeInvalid, meta)
		return nil, common.ErrorInternal
	}

	switch outcome {
	case models.OutcomeReal:
		a.count(outcome)
		if a.opts.LogRealSuccess {
			a.record(ctx, user.ID, at.UserName, outcome, meta)
		}
		return user, nil
	case models.OutcomeHoney:
		a.breach(ctx, user, at.UserName, meta)
		return nil, common.ErrorUnauthorized
	default:
		a.record(ctx, user.ID, at.UserName, models.OutcomeInvalid, meta)
		return nil, common.ErrorUnauthorized
	}
}

func (a *Authenticator) verify(ctx context.Context, user *models.User, password string) (models.Outcome, error) {
	if a.opts.AllowLegacy {
		if outcome, ok, err := a.verifyLegacy(ctx, user, password); err != nil || ok {
			return outcome, err
		}
	}

	if a.opts.Mode == ModeAmnesia {
		res, err := a.amnesia.Check(ctx, user.ID, password)
		if err != nil {
			return models.OutcomeInvalid, err
		}
		switch res {
		case amnesia.Success:
			return models.OutcomeReal, nil
		case amnesia.Breach:
			return models.OutcomeHoney, nil
		default:
			return models.OutcomeInvalid, nil
		}
	}

	idx, err := a.matcher.MatchIndex(ctx, user.ID, password)
	if err != nil {
		return models.OutcomeInvalid, err
	}
	if idx == honeywords.NoMatch {
		return models.OutcomeInvalid, nil
	}
	return a.verifyIndex(ctx, user, idx), nil
}

// verifyLegacy handles users that have no honeyword set yet. ok is false
// when the scheme check must run instead.
func (a *Authenticator) verifyLegacy(ctx context.Context, user *models.User, password string) (models.Outcome, bool, error) {
	if !user.HasUsablePassword() {
		return "", false, nil
	}
	var exists bool
	var err error
	if a.opts.Mode == ModeAmnesia {
		exists, err = a.amnesia.Exists(ctx, user.ID)
	} else {
		exists, err = a.matcher.Exists(ctx, user.ID)
	}
	if err != nil {
		return models.OutcomeInvalid, true, err
	}
	if exists {
		return "", false, nil
	}

	ok, err := cryptox.Verify(user.PasswordHash, password)
	if err != nil {
		a.logger.Warn(ctx, "unreadable legacy password hash", "user_id", user.ID, "error", err)
		return models.OutcomeInvalid, true, nil
	}
	if ok {
		return models.OutcomeReal, true, nil
	}
	return models.OutcomeInvalid, true, nil
}

// verifyIndex asks the honeychecker about a matched index. It runs with no
// credential lock held.
func (a *Authenticator) verifyIndex(ctx context.Context, user *models.User, idx int) models.Outcome {
	isReal, err := a.checker.Verify(ctx, user.ID, idx)
	switch {
	case err == nil && isReal:
		return models.OutcomeReal
	case err == nil:
		return models.OutcomeHoney
	case errors.Is(err, common.ErrorNotFound):
		a.logger.Warn(ctx, "honeychecker has no record for user", "user_id", user.ID)
		return models.OutcomeInvalid
	}

	if a.metrics != nil {
		a.metrics.HoneycheckerErrors.Inc()
	}
	if a.opts.FailClosed {
		a.logger.Error(ctx, "honeychecker unavailable, rejecting", "user_id", user.ID, "error", err)
		return models.OutcomeInvalid
	}
	a.logger.Warn(ctx, "honeychecker unavailable, accepting (fail-open)", "user_id", user.ID, "error", err)
	return models.OutcomeReal
}

func (a *Authenticator) breach(ctx context.Context, user *models.User, userName string, meta audit.Meta) {
	a.count(models.OutcomeHoney)
	a.logger.Error(ctx, "honeyword login attempt", "user_id", user.ID, "ip_address", meta.IPAddress)

	event := a.record(ctx, user.ID, userName, models.OutcomeHoney, meta)
	if a.metrics != nil {
		a.metrics.Breaches.Inc()
	}
	if a.bus != nil {
		a.bus.PublishBreach(ctx, notify.Breach{User: user, Event: event, Meta: meta})
	}

	var err error
	switch a.opts.OnHoneyword {
	case policy.ActionReset:
		err = a.policy.ApplyReset(ctx, user.ID)
	case policy.ActionLock:
		var until time.Time
		until, err = a.policy.ApplyLock(ctx, user.ID, a.opts.LockBase, a.opts.LockMax)
		if err == nil {
			a.logger.Warn(ctx, "account locked", "user_id", user.ID, "locked_until", until)
		}
	default:
		return
	}
	if err != nil {
		a.logger.Error(ctx, "policy action failed", "user_id", user.ID, "action", string(a.opts.OnHoneyword), "error", err)
		return
	}
	if a.metrics != nil {
		a.metrics.PolicyActions.WithLabelValues(string(a.opts.OnHoneyword)).Inc()
	}
}

// record appends an audit event. A failing audit log does not change the
// decision.
func (a *Authenticator) record(ctx context.Context, userID, userName string, outcome models.Outcome, meta audit.Meta) *models.AuditEvent {
	if outcome == models.OutcomeInvalid {
		a.count(outcome)
	}
	e, err := a.recorder.Record(ctx, userID, userName, outcome, meta)
	if err != nil {
		a.logger.Error(ctx, "audit write failed", "outcome", string(outcome), "error", err)
		return nil
	}
	return e
}

func (a *Authenticator) count(outcome models.Outcome) {
	if a.metrics != nil {
		a.metrics.AuthOutcomes.WithLabelValues(string(outcome)).Inc()
	}
}
