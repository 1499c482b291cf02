package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/honeychecker"
	"github.com/dmitrijs2005/honeykeeper/internal/honeychecker/storage"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/server/config"
	"github.com/dmitrijs2005/honeykeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = config.MemoryDSN
	cfg.PasswordHasher = "bcrypt"
	cfg.BcryptCost = 4
	cfg.K = 5
	cfg.PMark = 0
	cfg.PRemark = 0
	return cfg
}

func login(t *testing.T, h http.Handler, user, pw string) (int, map[string]string) {
	t.Helper()
	body := `{"username":"` + user + `","password":"` + pw + `"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body)))
	out := map[string]string{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec.Code, out
}

func TestBuildServices_AmnesiaEndToEnd(t *testing.T) {
	ctx := context.Background()
	s, err := BuildServices(ctx, testConfig(), logging.Discard())
	require.NoError(t, err)
	defer s.Close()

	u, err := s.Users.Register(ctx, "alice", "")
	require.NoError(t, err)
	require.NoError(t, s.Amnesia.InitializeFromConfig(ctx, u.ID, "CorrectHorse1", nil))

	h := httpapi.NewHandler(s.Auth, s.Users, s.Metrics.Handler(), logging.Discard()).Routes()

	code, resp := login(t, h, "alice", "CorrectHorse1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, u.ID, resp["user_id"])

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp["access_token"])
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	code, _ = login(t, h, "alice", "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)

	summary, err := s.Amnesia.Inspect(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.K)
}

func TestBuildServices_RemoteHoneychecker(t *testing.T) {
	ctx := context.Background()
	hc := httptest.NewServer(honeychecker.NewServer(storage.NewMemory(), nil, logging.Discard()).Routes())

	cfg := testConfig()
	cfg.AuthMode = config.AuthModeHoneychecker
	cfg.HoneycheckerMode = config.HoneycheckerRemote
	cfg.HoneycheckerURL = hc.URL
	cfg.HoneycheckerTimeout = time.Second

	s, err := BuildServices(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	defer s.Close()

	u, err := s.Users.Register(ctx, "bob", "")
	require.NoError(t, err)
	require.NoError(t, s.Honeywords.Initialize(ctx, u.ID, "CorrectHorse1", cfg.K, nil))

	h := httpapi.NewHandler(s.Auth, s.Users, nil, logging.Discard()).Routes()

	code, _ := login(t, h, "bob", "CorrectHorse1")
	assert.Equal(t, http.StatusOK, code)

	// fail closed once the honeychecker is gone
	hc.Close()
	code, _ = login(t, h, "bob", "CorrectHorse1")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestBuildServices_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	cfg.PasswordHasher = "scrypt"
	_, err := BuildServices(ctx, cfg, logging.Discard())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.OnHoneyword = "ignore"
	_, err = BuildServices(ctx, cfg, logging.Discard())
	assert.Error(t, err)

	orig := openRepositories
	defer func() { openRepositories = orig }()
	openRepositories = func(context.Context, string) (repomanager.RepositoryManager, honeychecker.Store, error) {
		return nil, nil, errors.New("connection refused")
	}
	_, err = BuildServices(ctx, testConfig(), logging.Discard())
	assert.ErrorContains(t, err, "db init error")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.EndpointAddrHTTP = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
