package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/invictos/bet-ledger/internal/client/api"
	"github.com/invictos/bet-ledger/internal/client/session"
)

type registerCmd struct {
	email    string
	password string
	fullName string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create an account and log in" }
func (*registerCmd) Usage() string {
	return `betledger register -email <email> [-name <full name>] [-password <password>]

  Creates an account on the server and stores the session locally.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "account email")
	f.StringVar(&c.password, "password", "", "account password (prompted when omitted)")
	f.StringVar(&c.fullName, "name", "", "full name")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" {
		return failUsage("-email is required")
	}
	cfg, cli, err := loadAnonApp()
	if err != nil {
		return fail(err)
	}
	if c.password == "" {
		if c.password, err = promptLine("Password: "); err != nil {
			return fail(err)
		}
	}

	resp, err := cli.Register(ctx, c.email, c.password, c.fullName)
	if err != nil {
		return fail(err)
	}
	if err := saveSession(cfg.DataDir, resp); err != nil {
		return fail(err)
	}
	fmt.Printf("Registered and logged in as %s\n", resp.User.Email)
	return subcommands.ExitSuccess
}

type loginCmd struct {
	email    string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "log in to the ledger server" }
func (*loginCmd) Usage() string {
	return `betledger login -email <email> [-password <password>]
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "account email")
	f.StringVar(&c.password, "password", "", "account password (prompted when omitted)")
}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" {
		return failUsage("-email is required")
	}
	cfg, cli, err := loadAnonApp()
	if err != nil {
		return fail(err)
	}
	if c.password == "" {
		if c.password, err = promptLine("Password: "); err != nil {
			return fail(err)
		}
	}

	resp, err := cli.Login(ctx, c.email, c.password)
	if err != nil {
		return fail(err)
	}
	if err := saveSession(cfg.DataDir, resp); err != nil {
		return fail(err)
	}
	fmt.Printf("Logged in as %s\n", resp.User.Email)
	return subcommands.ExitSuccess
}

func saveSession(dataDir string, resp api.AuthResponse) error {
	return session.Save(dataDir, session.Session{
		AccessToken: resp.AccessToken,
		User:        resp.User,
	})
}

type logoutCmd struct{}

func (*logoutCmd) Name() string           { return "logout" }
func (*logoutCmd) Synopsis() string       { return "forget the stored session" }
func (*logoutCmd) Usage() string          { return "betledger logout\n" }
func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (c *logoutCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, _, err := loadAnonApp()
	if err != nil {
		return fail(err)
	}
	if err := session.Clear(cfg.DataDir); err != nil {
		return fail(err)
	}
	fmt.Println("Logged out")
	return subcommands.ExitSuccess
}

type whoamiCmd struct{}

func (*whoamiCmd) Name() string           { return "whoami" }
func (*whoamiCmd) Synopsis() string       { return "show the logged-in user" }
func (*whoamiCmd) Usage() string          { return "betledger whoami\n" }
func (*whoamiCmd) SetFlags(*flag.FlagSet) {}

func (c *whoamiCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := loadApp()
	if err != nil {
		return fail(err)
	}

	// Prefer the server's view of the account, fall back to the session when
	// offline.
	if u, err := a.cli.Me(ctx); err == nil {
		fmt.Printf("%s (%s)\n", u.Email, u.ID)
		return subcommands.ExitSuccess
	}
	fmt.Printf("%s (%s) [offline]\n", a.sess.User.Email, a.sess.User.ID)
	return subcommands.ExitSuccess
}
