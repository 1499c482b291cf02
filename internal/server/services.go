package server

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/honeykeeper/internal/cryptox"
	"github.com/dmitrijs2005/honeykeeper/internal/generator"
	"github.com/dmitrijs2005/honeykeeper/internal/honeychecker"
	"github.com/dmitrijs2005/honeykeeper/internal/honeychecker/storage"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/randx"
	"github.com/dmitrijs2005/honeykeeper/internal/server/amnesia"
	"github.com/dmitrijs2005/honeykeeper/internal/server/audit"
	"github.com/dmitrijs2005/honeykeeper/internal/server/auth"
	"github.com/dmitrijs2005/honeykeeper/internal/server/config"
	"github.com/dmitrijs2005/honeykeeper/internal/server/honeywords"
	"github.com/dmitrijs2005/honeykeeper/internal/server/metrics"
	"github.com/dmitrijs2005/honeykeeper/internal/server/notify"
	"github.com/dmitrijs2005/honeykeeper/internal/server/policy"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/honeykeeper/internal/server/services"
)

// Services is the composed core. The server and the admin CLI build it the
// same way.
type Services struct {
	Repos      repomanager.RepositoryManager
	Users      *services.UserService
	Amnesia    *amnesia.Service
	Honeywords *honeywords.Service
	Checker    honeychecker.Checker
	Policy     *policy.Engine
	Recorder   *audit.Recorder
	Archiver   *audit.Archiver
	Bus        *notify.Bus
	Metrics    *metrics.Metrics
	Auth       *auth.Authenticator
}

// openRepositories is swapped in tests.
var openRepositories = func(ctx context.Context, dsn string) (repomanager.RepositoryManager, honeychecker.Store, error) {
	if dsn == config.MemoryDSN {
		return repomanager.NewMemoryRepositoryManager(), storage.NewMemory(), nil
	}
	m, err := repomanager.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return m, storage.NewSQL(m.DB(), storage.Postgres), nil
}

func BuildServices(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Services, error) {
	repos, localStore, err := openRepositories(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	hasher, err := cryptox.NewHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}
	action, err := policy.ParseAction(cfg.OnHoneyword)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	var checker honeychecker.Checker
	if cfg.HoneycheckerMode == config.HoneycheckerRemote {
		checker = honeychecker.NewClient(cfg.HoneycheckerURL, cfg.HoneycheckerTimeout)
	} else {
		checker = honeychecker.NewLocal(localStore)
	}

	rng := randx.Crypto()
	gen := generator.New(rng)

	s := &Services{
		Repos:   repos,
		Checker: checker,
		Bus:     notify.NewBus(),
		Metrics: metrics.New(),
	}
	s.Users = services.NewUserService(repos, hasher, s.Bus, cfg, logger)
	s.Amnesia = amnesia.NewService(repos, gen, hasher, rng,
		amnesia.Params{K: cfg.K, PMark: cfg.PMark, PRemark: cfg.PRemark}, logger)
	s.Amnesia.OnRemark(s.Metrics.Remarks.Inc)
	s.Honeywords = honeywords.NewService(repos, gen, hasher, checker, rng, logger)
	s.Policy = policy.NewEngine(repos, logger)
	s.Recorder = audit.NewRecorder(repos.AuditEvents())
	s.Archiver = audit.NewArchiver(repos.AuditEvents(), cfg)

	s.Bus.OnBreach(notify.LogBreaches(logger.With("module", "notify")))
	if cfg.AuthMode == config.AuthModeAmnesia {
		s.Bus.OnCredentialChanged(notify.WarnStaleSets(s.Amnesia, logger.With("module", "notify")))
	} else {
		s.Bus.OnCredentialChanged(notify.WarnStaleSets(s.Honeywords, logger.With("module", "notify")))
	}

	s.Auth, err = auth.NewAuthenticator(auth.Options{
		Mode:           auth.Mode(cfg.AuthMode),
		OnHoneyword:    action,
		LockBase:       cfg.LockBase(),
		LockMax:        cfg.LockMax(),
		FailClosed:     cfg.HoneycheckerFailClosed,
		LogRealSuccess: cfg.LogRealSuccess,
		AllowLegacy:    cfg.AllowLegacyPasswords,
	}, auth.Deps{
		Users:    repos.Users(),
		Amnesia:  s.Amnesia,
		Matcher:  s.Honeywords,
		Checker:  checker,
		Policy:   s.Policy,
		Recorder: s.Recorder,
		Bus:      s.Bus,
		Metrics:  s.Metrics,
	}, logger)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}
	return s, nil
}

func (s *Services) Close() error {
	return s.Repos.Close()
}
