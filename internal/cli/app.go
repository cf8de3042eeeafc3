package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/invictos/bet-ledger/internal/client/api"
	"github.com/invictos/bet-ledger/internal/client/config"
	"github.com/invictos/bet-ledger/internal/client/session"
	"github.com/invictos/bet-ledger/internal/client/state"
	"github.com/invictos/bet-ledger/internal/client/store"
	"github.com/invictos/bet-ledger/internal/client/syncer"
)

// Register wires every subcommand into the commander.
func Register(c *subcommands.Commander) {
	c.Register(&registerCmd{}, "account")
	c.Register(&loginCmd{}, "account")
	c.Register(&logoutCmd{}, "account")
	c.Register(&whoamiCmd{}, "account")

	c.Register(&addCmd{}, "bets")
	c.Register(&updateCmd{}, "bets")
	c.Register(&deleteCmd{}, "bets")
	c.Register(&listCmd{}, "bets")

	c.Register(&summaryCmd{}, "reports")
	c.Register(&monthsCmd{}, "reports")

	c.Register(&syncCmd{}, "sync")
}

// app bundles the pieces every authenticated command needs.
type app struct {
	cfg  config.Config
	cli  *api.Client
	sess session.Session
	rec  *syncer.Reconciler
	log  *zap.Logger
}

func newLogger() *zap.Logger {
	if os.Getenv("BETLEDGER_DEBUG") == "" {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// loadApp loads config, session, the local store and builds the reconciler.
// Fails when nobody is logged in.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	sess, err := session.Load(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	cli := api.New(cfg.APIURL, cfg.Timeout())
	cli.SetToken(sess.AccessToken)

	st := store.New(cfg.DataDir)
	bets, err := st.LoadBets(sess.User.ID)
	if err != nil {
		return nil, err
	}

	log := newLogger()
	rec := syncer.New(cli, st, state.NewView(bets), sess.User.ID, log)

	return &app{cfg: cfg, cli: cli, sess: sess, rec: rec, log: log}, nil
}

// loadAnonApp is for commands that run before login.
func loadAnonApp() (config.Config, *api.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, api.New(cfg.APIURL, cfg.Timeout()), nil
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

func failUsage(msg string) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	return subcommands.ExitUsageError
}

// promptLine reads one line from stdin after printing the prompt. Used for
// the password when the flag is not given; fine for a personal tool.
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
