package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"github.com/invictos/bet-ledger/internal/ledger"
)

// legList is a repeatable -leg flag with values like "1.85:Real Madrid ML"
// (odds, then a colon, then the description).
type legList struct {
	legs []ledger.ParlayLeg
}

func (l *legList) String() string {
	parts := make([]string, 0, len(l.legs))
	for _, leg := range l.legs {
		parts = append(parts, fmt.Sprintf("%s:%s", ledger.FormatOdds(leg.Odds), leg.Detail))
	}
	return strings.Join(parts, ", ")
}

func (l *legList) Set(v string) error {
	oddsStr, detail, ok := strings.Cut(v, ":")
	if !ok {
		return fmt.Errorf("leg %q: want odds:description", v)
	}
	odds, err := strconv.ParseFloat(strings.TrimSpace(oddsStr), 64)
	if err != nil {
		return fmt.Errorf("leg %q: bad odds: %w", v, err)
	}
	l.legs = append(l.legs, ledger.ParlayLeg{Detail: strings.TrimSpace(detail), Odds: odds})
	return nil
}

type addCmd struct {
	date    string
	betType string
	detail  string
	stake   float64
	odds    float64
	cashout float64
	outcome string
	legs    legList
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a new bet" }
func (*addCmd) Usage() string {
	return `betledger add -detail <text> -stake <amount> [-d <date>] [-odds <odds>] [-type single|parlay] [-leg odds:description ...] [-outcome won|lost|pending] [-cashout <amount>]

  Records a bet. Parlays take two or more -leg flags and derive the
  combined odds from them. Works offline: the bet is queued and pushed
  on the next sync.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "event date YYYY-MM-DD (defaults to today)")
	f.StringVar(&c.betType, "type", "single", "bet type: single or parlay")
	f.StringVar(&c.detail, "detail", "", "bet description")
	f.Float64Var(&c.stake, "stake", 0, "stake amount")
	f.Float64Var(&c.odds, "odds", 0, "decimal odds (singles only)")
	f.Float64Var(&c.cashout, "cashout", -1, "cashout amount, overrides the payout")
	f.StringVar(&c.outcome, "outcome", "pending", "outcome: won, lost or pending")
	f.Var(&c.legs, "leg", "parlay leg as odds:description (repeatable)")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := loadApp()
	if err != nil {
		return fail(err)
	}

	date := ledger.Today()
	if c.date != "" {
		if date, err = ledger.ParseDate(c.date); err != nil {
			return failUsage(err.Error())
		}
	}

	b := ledger.Bet{
		EventDate: date,
		Type:      ledger.BetType(c.betType),
		Detail:    c.detail,
		Stake:     c.stake,
		Odds:      c.odds,
		Outcome:   ledger.Outcome(c.outcome),
		Legs:      c.legs.legs,
	}
	if c.cashout >= 0 {
		v := c.cashout
		b.Cashout = &v
	}

	created, queued, err := a.rec.Create(ctx, b)
	if err != nil {
		return fail(err)
	}

	fmt.Printf("Added %s  %s @ %s  stake %s%s\n",
		created.ID, created.Detail, ledger.FormatOdds(created.Odds),
		ledger.FormatAmount(created.Stake), queuedSuffix(queued))
	return subcommands.ExitSuccess
}

type updateCmd struct {
	id      string
	date    string
	detail  string
	stake   float64
	odds    float64
	cashout float64
	outcome string
	legs    legList
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "modify an existing bet" }
func (*updateCmd) Usage() string {
	return `betledger update -id <bet id> [-outcome won|lost|pending] [-cashout <amount>] [-stake <amount>] [-odds <odds>] [-detail <text>] [-d <date>] [-leg odds:description ...]

  Applies only the flags given; legs, when given, replace the existing
  legs entirely. Works offline like add.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "bet id")
	f.StringVar(&c.date, "d", "", "event date YYYY-MM-DD")
	f.StringVar(&c.detail, "detail", "", "bet description")
	f.Float64Var(&c.stake, "stake", 0, "stake amount")
	f.Float64Var(&c.odds, "odds", 0, "decimal odds")
	f.Float64Var(&c.cashout, "cashout", 0, "cashout amount")
	f.StringVar(&c.outcome, "outcome", "", "outcome: won, lost or pending")
	f.Var(&c.legs, "leg", "parlay leg as odds:description (repeatable)")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		return failUsage("-id is required")
	}

	var patch ledger.BetPatch
	var parseErr error
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "d":
			d, err := ledger.ParseDate(c.date)
			if err != nil {
				parseErr = err
				return
			}
			patch.EventDate = &d
		case "detail":
			patch.Detail = &c.detail
		case "stake":
			patch.Stake = &c.stake
		case "odds":
			patch.Odds = &c.odds
		case "cashout":
			patch.Cashout = &c.cashout
		case "outcome":
			o := ledger.Outcome(c.outcome)
			patch.Outcome = &o
		case "leg":
			legs := make([]ledger.LegInput, 0, len(c.legs.legs))
			for _, leg := range c.legs.legs {
				legs = append(legs, ledger.LegInput{Detail: leg.Detail, Odds: leg.Odds})
			}
			patch.Legs = &legs
		}
	})
	if parseErr != nil {
		return failUsage(parseErr.Error())
	}
	if patch.IsZero() {
		return failUsage("nothing to update; pass at least one field flag")
	}

	a, err := loadApp()
	if err != nil {
		return fail(err)
	}

	updated, queued, err := a.rec.Update(ctx, c.id, patch)
	if err != nil {
		return fail(err)
	}

	fmt.Printf("Updated %s  %s  outcome %s%s\n",
		updated.ID, updated.Detail, updated.Outcome, queuedSuffix(queued))
	return subcommands.ExitSuccess
}

type deleteCmd struct {
	id string
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "remove a bet" }
func (*deleteCmd) Usage() string {
	return `betledger delete -id <bet id>
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "bet id")
}

func (c *deleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		return failUsage("-id is required")
	}
	a, err := loadApp()
	if err != nil {
		return fail(err)
	}

	queued, err := a.rec.Delete(ctx, c.id)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Deleted %s%s\n", c.id, queuedSuffix(queued))
	return subcommands.ExitSuccess
}

func queuedSuffix(queued bool) string {
	if queued {
		return "  (offline, queued for sync)"
	}
	return ""
}
