package state

import (
	"sort"
	"time"

	"github.com/invictos/bet-ledger/internal/ledger"
)

// View is the in-memory ledger view: the single source of truth during a
// session, keyed by bet id. It is rebuilt from the local store at session
// start and replaced wholesale after a full remote sync. All reads are over
// the current snapshot; none mutate state.
type View struct {
	bets     map[string]ledger.Bet
	lastSync time.Time
}

// NewView builds a view seeded with the given bets.
func NewView(bets []ledger.Bet) *View {
	v := &View{bets: make(map[string]ledger.Bet, len(bets))}
	for _, b := range bets {
		v.bets[b.ID] = b
	}
	return v
}

// Upsert inserts or replaces the bet by id.
func (v *View) Upsert(b ledger.Bet) { v.bets[b.ID] = b }

// Remove deletes the bet by id; removing an absent id is a no-op.
func (v *View) Remove(id string) { delete(v.bets, id) }

// Get returns the bet and whether it exists.
func (v *View) Get(id string) (ledger.Bet, bool) {
	b, ok := v.bets[id]
	return b, ok
}

// Len returns the number of bets in the view.
func (v *View) Len() int { return len(v.bets) }

// ReplaceAll swaps the whole view for the given bets and records the sync
// moment.
func (v *View) ReplaceAll(bets []ledger.Bet, lastSync time.Time) {
	v.bets = make(map[string]ledger.Bet, len(bets))
	for _, b := range bets {
		v.bets[b.ID] = b
	}
	v.lastSync = lastSync
}

// LastSync returns the moment of the last full or incremental pull, zero if
// never synced this session.
func (v *View) LastSync() time.Time { return v.lastSync }

// SetLastSync records the moment of the last pull.
func (v *View) SetLastSync(t time.Time) { v.lastSync = t }

// ListAll returns every bet sorted by (event date desc, created_at desc).
func (v *View) ListAll() []ledger.Bet {
	out := make([]ledger.Bet, 0, len(v.bets))
	for _, b := range v.bets {
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EventDate != out[j].EventDate {
			return out[i].EventDate.After(out[j].EventDate)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ByDate returns the bets on the given event date, newest created first.
func (v *View) ByDate(d ledger.Date) []ledger.Bet {
	var out []ledger.Bet
	for _, b := range v.bets {
		if b.EventDate == d {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ByMonth returns the bets whose event date falls in the given "YYYY-MM"
// month, sorted by (event date desc, created_at desc).
func (v *View) ByMonth(monthKey string) []ledger.Bet {
	var out []ledger.Bet
	for _, b := range v.bets {
		if b.EventDate.MonthKey() == monthKey {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EventDate != out[j].EventDate {
			return out[i].EventDate.After(out[j].EventDate)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Months returns the distinct "YYYY-MM" keys present, newest first.
func (v *View) Months() []string {
	seen := make(map[string]struct{})
	for _, b := range v.bets {
		seen[b.EventDate.MonthKey()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// DailyMetrics recomputes summary metrics for one event date.
func (v *View) DailyMetrics(d ledger.Date) ledger.SummaryMetrics {
	return ledger.Compute(v.ByDate(d))
}

// MonthMetrics recomputes summary metrics for one month.
func (v *View) MonthMetrics(monthKey string) ledger.SummaryMetrics {
	return ledger.Compute(v.ByMonth(monthKey))
}

// OverallMetrics recomputes summary metrics over the whole view.
func (v *View) OverallMetrics() ledger.SummaryMetrics {
	return ledger.Compute(v.ListAll())
}
