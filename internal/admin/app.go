// Package admin implements the administrative command line: creating users,
// initializing honeyword sets, inspecting and unlocking accounts and
// exporting the audit log. Password material is read from the terminal and
// never printed.
package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/flagx"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/server"
	"github.com/dmitrijs2005/honeykeeper/internal/server/config"
)

const usage = `usage: cli [config flags] <command> [args]

commands:
  create-user [-legacy] <username>          create a user (optionally with a legacy password)
  amnesia-init [-k n] [-p-mark p] [-p-remark p] <username>
                                            initialize an Amnesia set
  honeywords-init [-k n] <username>         initialize a honeychecker-backed set
  check <username>                          classify a password against the set
  inspect <username>                        show set metadata and policy state
  unlock <username>                         clear an active lockout
  clear-reset <username>                    clear the must-reset flag
  export-audit [-since 24h|RFC3339]         upload audit events to S3
`

// buildServices is swapped in tests.
var buildServices = server.BuildServices

type App struct {
	config   *config.Config
	services *server.Services
	in       *bufio.Reader
	out      io.Writer
	logger   logging.Logger
}

// Run executes one command and returns the process exit code.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd, global, rest := flagx.Subcommand(args)
	if cmd == "" || cmd == "help" {
		fmt.Fprint(stdout, usage)
		if cmd == "" {
			return 2
		}
		return 0
	}

	cfg, err := config.LoadConfigFrom(global)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 2
	}

	logger := logging.New(stderr, cfg.LogLevel)
	s, err := buildServices(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()

	app := &App{config: cfg, services: s, in: bufio.NewReader(stdin), out: stdout, logger: logger}
	if err := app.dispatch(ctx, cmd, rest); err != nil {
		fmt.Fprintln(stderr, "error:", describe(err))
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

func (a *App) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "create-user":
		return a.createUser(ctx, args)
	case "amnesia-init":
		return a.amnesiaInit(ctx, args)
	case "honeywords-init":
		return a.honeywordsInit(ctx, args)
	case "check":
		return a.check(ctx, args)
	case "inspect":
		return a.inspect(ctx, args)
	case "unlock":
		return a.unlock(ctx, args)
	case "clear-reset":
		return a.clearReset(ctx, args)
	case "export-audit":
		return a.exportAudit(ctx, args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrGeneratorExhaustion):
		return "could not generate enough honeywords; choose a longer password"
	case errors.Is(err, common.ErrorNotFound):
		return "user not found"
	}
	return err.Error()
}

// Main is the entry point used by cmd/cli.
func Main() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
