package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/invictos/bet-ledger/internal/ledger"
)

type listCmd struct {
	date  string
	month string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list bets from the local ledger" }
func (*listCmd) Usage() string {
	return `betledger list [-d <date>] [-m <YYYY-MM>]

  Lists bets from the local cache, newest first. Filter by event day or
  by month. Run 'betledger sync' first to pull the latest server state.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "only bets on this event date (YYYY-MM-DD)")
	f.StringVar(&c.month, "m", "", "only bets in this month (YYYY-MM)")
}

func (c *listCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.date != "" && c.month != "" {
		return failUsage("-d and -m are mutually exclusive")
	}
	a, err := loadApp()
	if err != nil {
		return fail(err)
	}
	view := a.rec.View()

	var bets []ledger.Bet
	switch {
	case c.date != "":
		d, err := ledger.ParseDate(c.date)
		if err != nil {
			return failUsage(err.Error())
		}
		bets = view.ByDate(d)
	case c.month != "":
		bets = view.ByMonth(c.month)
	default:
		bets = view.ListAll()
	}

	if len(bets) == 0 {
		fmt.Println("No bets.")
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tID\tTYPE\tDETAIL\tSTAKE\tODDS\tOUTCOME\tNET")
	for _, b := range bets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.EventDate, shortID(b.ID), b.Type, b.Detail,
			ledger.FormatAmount(b.Stake), ledger.FormatOdds(b.Odds),
			b.Outcome, ledger.FormatAmount(ledger.Net(b)))
	}
	w.Flush()
	return subcommands.ExitSuccess
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type summaryCmd struct {
	date  string
	month string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show aggregated results" }
func (*summaryCmd) Usage() string {
	return `betledger summary [-d <date>] [-m <YYYY-MM>]

  Shows stake, return, net and yield. Without flags the whole ledger is
  aggregated.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "aggregate one event date (YYYY-MM-DD)")
	f.StringVar(&c.month, "m", "", "aggregate one month (YYYY-MM)")
}

func (c *summaryCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.date != "" && c.month != "" {
		return failUsage("-d and -m are mutually exclusive")
	}
	a, err := loadApp()
	if err != nil {
		return fail(err)
	}
	view := a.rec.View()

	var label string
	var m ledger.SummaryMetrics
	switch {
	case c.date != "":
		d, err := ledger.ParseDate(c.date)
		if err != nil {
			return failUsage(err.Error())
		}
		label, m = c.date, view.DailyMetrics(d)
	case c.month != "":
		label, m = c.month, view.MonthMetrics(c.month)
	default:
		label, m = "overall", view.OverallMetrics()
	}

	printMetrics(label, m)
	return subcommands.ExitSuccess
}

func printMetrics(label string, m ledger.SummaryMetrics) {
	fmt.Printf("Summary (%s)\n", label)
	fmt.Printf("  bets:    %d  (W %d / L %d / P %d)\n", m.Count, m.Wins, m.Losses, m.Pending)
	fmt.Printf("  staked:  %s\n", ledger.FormatAmount(m.StakeTotal))
	fmt.Printf("  return:  %s\n", ledger.FormatAmount(m.ReturnTotal))
	fmt.Printf("  net:     %s\n", ledger.FormatAmount(m.Net))
	fmt.Printf("  yield:   %.2f%%\n", m.YieldPercent())
}

type monthsCmd struct{}

func (*monthsCmd) Name() string           { return "months" }
func (*monthsCmd) Synopsis() string       { return "list months with activity and their results" }
func (*monthsCmd) Usage() string          { return "betledger months\n" }
func (*monthsCmd) SetFlags(*flag.FlagSet) {}

func (c *monthsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := loadApp()
	if err != nil {
		return fail(err)
	}
	view := a.rec.View()

	months := view.Months()
	if len(months) == 0 {
		fmt.Println("No bets.")
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tBETS\tSTAKED\tNET\tYIELD")
	for _, month := range months {
		m := view.MonthMetrics(month)
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%.2f%%\n",
			month, m.Count,
			ledger.FormatAmount(m.StakeTotal), ledger.FormatAmount(m.Net),
			m.YieldPercent())
	}
	w.Flush()
	return subcommands.ExitSuccess
}
