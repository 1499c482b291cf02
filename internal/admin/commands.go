package admin

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/server/amnesia"
	"github.com/dmitrijs2005/honeykeeper/internal/server/config"
	"github.com/dmitrijs2005/honeykeeper/internal/server/honeywords"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseUser parses fs and returns its single positional argument.
func parseUser(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%w: %s expects exactly one username", errUsage, fs.Name())
	}
	return fs.Arg(0), nil
}

func (a *App) lookup(ctx context.Context, fs *flag.FlagSet, args []string) (*models.User, error) {
	name, err := parseUser(fs, args)
	if err != nil {
		return nil, err
	}
	return a.services.Users.Lookup(ctx, name)
}

func (a *App) createUser(ctx context.Context, args []string) error {
	fs := newFlagSet("create-user")
	legacy := fs.Bool("legacy", false, "also set a legacy password")
	name, err := parseUser(fs, args)
	if err != nil {
		return err
	}

	var pw string
	if *legacy {
		if pw, err = getNewPassword(a.in, a.out); err != nil {
			return err
		}
	}

	u, err := a.services.Users.Register(ctx, name, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created user %s (%s)\n", u.UserName, u.ID)
	return nil
}

func (a *App) amnesiaInit(ctx context.Context, args []string) error {
	fs := newFlagSet("amnesia-init")
	k := fs.Int("k", a.config.K, "set size")
	pMark := fs.Float64("p-mark", a.config.PMark, "probability a decoy is marked")
	pRemark := fs.Float64("p-remark", a.config.PRemark, "probability of a remark after a login")
	u, err := a.lookup(ctx, fs, args)
	if err != nil {
		return err
	}

	p := amnesia.Params{K: *k, PMark: *pMark, PRemark: *pRemark}
	if err := p.Validate(); err != nil {
		return err
	}
	pw, err := getNewPassword(a.in, a.out)
	if err != nil {
		return err
	}
	if err := a.services.Amnesia.Initialize(ctx, u.ID, pw, p); err != nil {
		return err
	}

	sum, err := a.services.Amnesia.Inspect(ctx, u.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "initialized Amnesia set for %s: k=%d marked=%d\n", u.UserName, sum.K, sum.Marked)
	return nil
}

func (a *App) honeywordsInit(ctx context.Context, args []string) error {
	fs := newFlagSet("honeywords-init")
	k := fs.Int("k", a.config.K, "set size")
	u, err := a.lookup(ctx, fs, args)
	if err != nil {
		return err
	}
	if *k < 2 {
		return fmt.Errorf("%w: k must be >= 2, got %d", common.ErrInvalidArgument, *k)
	}

	pw, err := getNewPassword(a.in, a.out)
	if err != nil {
		return err
	}
	if err := a.services.Honeywords.Initialize(ctx, u.ID, pw, *k, nil); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "initialized honeyword set for %s: k=%d\n", u.UserName, *k)
	return nil
}

// check classifies a password with the configured scheme. It skips the
// policy gate and the audit log; an Amnesia success may still redraw marks.
func (a *App) check(ctx context.Context, args []string) error {
	u, err := a.lookup(ctx, newFlagSet("check"), args)
	if err != nil {
		return err
	}
	pw, err := getPassword(a.in, a.out, "Enter password: ")
	if err != nil {
		return err
	}

	if a.config.AuthMode == config.AuthModeAmnesia {
		res, err := a.services.Amnesia.Check(ctx, u.ID, pw)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, res)
		return nil
	}

	idx, err := a.services.Honeywords.MatchIndex(ctx, u.ID, pw)
	if err != nil {
		return err
	}
	if idx == honeywords.NoMatch {
		fmt.Fprintln(a.out, amnesia.Invalid)
		return nil
	}
	isReal, err := a.services.Checker.Verify(ctx, u.ID, idx)
	if err != nil {
		return err
	}
	if isReal {
		fmt.Fprintln(a.out, amnesia.Success)
	} else {
		fmt.Fprintln(a.out, amnesia.Breach)
	}
	return nil
}

func (a *App) inspect(ctx context.Context, args []string) error {
	u, err := a.lookup(ctx, newFlagSet("inspect"), args)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "user:            %s (%s)\n", u.UserName, u.ID)
	fmt.Fprintf(a.out, "legacy password: %v\n", u.HasUsablePassword())

	sum, err := a.services.Amnesia.Inspect(ctx, u.ID)
	switch {
	case errors.Is(err, common.ErrNotInitialized):
		fmt.Fprintln(a.out, "amnesia set:     none")
	case err != nil:
		return err
	default:
		fmt.Fprintf(a.out, "amnesia set:     %s k=%d marked=%d p_mark=%g p_remark=%g %s created %s\n",
			sum.SetID, sum.K, sum.Marked, sum.PMark, sum.PRemark, sum.AlgorithmVersion, sum.CreatedAt.Format(time.RFC3339))
	}

	hw, err := a.services.Honeywords.Exists(ctx, u.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "honeyword set:   %v\n", hw)

	st, err := a.services.Policy.State(ctx, u.ID)
	if err != nil {
		return err
	}
	locked := "no"
	if st.IsLocked(time.Now()) {
		locked = "until " + st.LockedUntil.Format(time.RFC3339)
	}
	fmt.Fprintf(a.out, "locked:          %s (lock count %d)\n", locked, st.LockCount)
	fmt.Fprintf(a.out, "must reset:      %v\n", st.MustReset)
	return nil
}

func (a *App) unlock(ctx context.Context, args []string) error {
	u, err := a.lookup(ctx, newFlagSet("unlock"), args)
	if err != nil {
		return err
	}
	if err := a.services.Policy.Unlock(ctx, u.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "unlocked %s\n", u.UserName)
	return nil
}

func (a *App) clearReset(ctx context.Context, args []string) error {
	u, err := a.lookup(ctx, newFlagSet("clear-reset"), args)
	if err != nil {
		return err
	}
	if err := a.services.Policy.ClearReset(ctx, u.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "cleared reset flag for %s\n", u.UserName)
	return nil
}

func (a *App) exportAudit(ctx context.Context, args []string) error {
	fs := newFlagSet("export-audit")
	sinceArg := fs.String("since", "24h", "duration back from now or RFC3339 timestamp")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: export-audit: %v", errUsage, err)
	}

	since, err := parseSince(*sinceArg, time.Now())
	if err != nil {
		return err
	}

	res, err := a.services.Archiver.Export(ctx, since)
	if err != nil {
		return err
	}
	if res.Count == 0 {
		fmt.Fprintln(a.out, "no audit events to export")
		return nil
	}
	fmt.Fprintf(a.out, "exported %d events to s3://%s/%s\n", res.Count, res.Bucket, res.Key)
	return nil
}

func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: -since wants a duration or RFC3339 time, got %q", errUsage, s)
	}
	return t, nil
}
