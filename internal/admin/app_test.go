package admin

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/server"
	"github.com/dmitrijs2005/honeykeeper/internal/server/audit"
	"github.com/dmitrijs2005/honeykeeper/internal/server/config"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture shares one in-memory service graph across CLI invocations.
type fixture struct {
	t        *testing.T
	services *server.Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t}

	origBuild, origTerm := buildServices, stdinIsTerminal
	t.Cleanup(func() { buildServices, stdinIsTerminal = origBuild, origTerm })

	stdinIsTerminal = func() bool { return false }
	buildServices = func(ctx context.Context, cfg *config.Config, logger logging.Logger) (*server.Services, error) {
		if f.services == nil {
			f.build(cfg)
		}
		return f.services, nil
	}
	return f
}

func (f *fixture) build(cfg *config.Config) {
	f.t.Helper()
	cfg.PasswordHasher = "bcrypt"
	cfg.BcryptCost = 4
	s, err := server.BuildServices(context.Background(), cfg, logging.Discard())
	require.NoError(f.t, err)
	f.services = s
}

func (f *fixture) run(stdin string, args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	code := Run(context.Background(), append([]string{"-d", "memory"}, args...), strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Usage(t *testing.T) {
	f := newFixture(t)

	code, out, _ := f.run("")
	assert.Equal(t, 2, code)
	assert.Contains(t, out, "amnesia-init")

	code, _, _ = f.run("", "help")
	assert.Equal(t, 0, code)

	code, _, errOut := f.run("", "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown command")

	code, _, errOut = f.run("", "unlock")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "exactly one username")
}

func TestRun_BadConfig(t *testing.T) {
	f := newFixture(t)
	code, _, errOut := f.run("", "-k", "1", "inspect", "alice")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "config")
}

func TestRun_AmnesiaFlow(t *testing.T) {
	f := newFixture(t)

	code, out, errOut := f.run("", "create-user", "alice")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "created user alice")

	code, out, errOut = f.run("Secret12345\nSecret12345\n", "amnesia-init", "-k", "5", "-p-mark", "0", "-p-remark", "0", "alice")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "k=5 marked=1")
	assert.NotContains(t, out, "Secret12345")

	code, out, _ = f.run("Secret12345\n", "check", "alice")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "success")

	code, out, _ = f.run("nope\n", "check", "alice")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "invalid")

	code, out, _ = f.run("", "inspect", "alice")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "k=5 marked=1")
	assert.Contains(t, out, "legacy password: false")
	assert.Contains(t, out, "must reset:      false")
}

func TestRun_PasswordMismatch(t *testing.T) {
	f := newFixture(t)
	code, _, _ := f.run("", "create-user", "alice")
	require.Equal(t, 0, code)

	code, _, errOut := f.run("one\ntwo\n", "amnesia-init", "-k", "5", "alice")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "passwords do not match")
}

func TestRun_UnknownUser(t *testing.T) {
	f := newFixture(t)
	code, _, errOut := f.run("", "inspect", "ghost")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "user not found")
}

func TestRun_CreateUserWithLegacyPassword(t *testing.T) {
	f := newFixture(t)
	code, _, errOut := f.run("legacy-pw\nlegacy-pw\n", "create-user", "-legacy", "bob")
	require.Equal(t, 0, code, errOut)

	code, out, _ := f.run("", "inspect", "bob")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "legacy password: true")
	assert.Contains(t, out, "amnesia set:     none")
}

func TestRun_HoneycheckerFlow(t *testing.T) {
	f := newFixture(t)
	code, _, _ := f.run("", "-m", "honeychecker", "create-user", "carol")
	require.Equal(t, 0, code)

	code, out, errOut := f.run("Secret12345\nSecret12345\n", "-m", "honeychecker", "honeywords-init", "-k", "4", "carol")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "k=4")

	code, out, _ = f.run("Secret12345\n", "-m", "honeychecker", "check", "carol")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "success")

	code, out, _ = f.run("other\n", "-m", "honeychecker", "check", "carol")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "invalid")

	code, out, _ = f.run("", "inspect", "carol")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "honeyword set:   true")
}

func TestRun_UnlockAndClearReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	code, _, _ := f.run("", "create-user", "dave")
	require.Equal(t, 0, code)

	u, err := f.services.Users.Lookup(ctx, "dave")
	require.NoError(t, err)
	_, err = f.services.Policy.ApplyLock(ctx, u.ID, time.Hour, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.services.Policy.ApplyReset(ctx, u.ID))

	code, out, _ := f.run("", "inspect", "dave")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "locked:          until")

	code, _, _ = f.run("", "unlock", "dave")
	require.Equal(t, 0, code)
	code, _, _ = f.run("", "clear-reset", "dave")
	require.Equal(t, 0, code)

	st, err := f.services.Policy.State(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, st.LockedUntil)
	assert.Zero(t, st.LockCount)
	assert.False(t, st.MustReset)
}

func TestRun_ExportAudit(t *testing.T) {
	var mu sync.Mutex
	var uploads []string
	s3 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		uploads = append(uploads, r.Method+" "+r.URL.Path+" "+string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer s3.Close()

	f := newFixture(t)
	cfg, err := config.LoadConfigFrom([]string{"-d", "memory", "-e", s3.URL, "-b", "audit-bucket"})
	require.NoError(t, err)
	f.build(cfg)

	code, out, _ := f.run("", "export-audit")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "no audit events")

	_, err = f.services.Recorder.Record(context.Background(), "", "mallory", models.OutcomeInvalid, audit.Meta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	code, out, errOut := f.run("", "export-audit", "-since", "1h")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "exported 1 events to s3://audit-bucket/audit/")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, uploads, 1)
	assert.Contains(t, uploads[0], "PUT /audit-bucket/audit/")
	assert.Contains(t, uploads[0], `"username":"mallory"`)
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	got, err := parseSince("2h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-2*time.Hour), got)

	got, err = parseSince("2026-04-30T00:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), got)

	_, err = parseSince("yesterday", now)
	assert.ErrorIs(t, err, errUsage)
}
