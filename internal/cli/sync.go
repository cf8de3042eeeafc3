package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"github.com/invictos/bet-ledger/internal/client/api"
)

type syncCmd struct{}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "push queued changes and pull the server state" }
func (*syncCmd) Usage() string {
	return `betledger sync

  Replays any queued offline changes in order, then pulls everything the
  server changed since the last sync.
`
}

func (*syncCmd) SetFlags(*flag.FlagSet) {}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := loadApp()
	if err != nil {
		return fail(err)
	}

	if err := a.rec.Sync(ctx); err != nil {
		if api.IsConnectivity(err) {
			fmt.Println("Server unreachable; changes stay queued for the next sync.")
			return subcommands.ExitSuccess
		}
		return fail(err)
	}

	view := a.rec.View()
	fmt.Printf("Synced %d bets (last sync %s)\n",
		view.Len(), view.LastSync().Local().Format(time.RFC3339))
	return subcommands.ExitSuccess
}
