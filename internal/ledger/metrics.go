package ledger

// SummaryMetrics is derived from a sequence of bets. It is never persisted
// and never cached across mutations; callers recompute it on demand.
type SummaryMetrics struct {
	StakeTotal  float64
	ReturnTotal float64
	Net         float64
	Wins        int
	Losses      int
	Pending     int
	Count       int
}

// YieldPercent is net over total stake, as a percentage. Zero when nothing
// was staked.
func (m SummaryMetrics) YieldPercent() float64 {
	if m.StakeTotal <= 0 {
		return 0
	}
	return m.Net / m.StakeTotal * 100
}

// Compute folds over the bets accumulating stake, return and net, and
// classifies each bet into exactly one of wins/losses/pending.
func Compute(bets []Bet) SummaryMetrics {
	var m SummaryMetrics
	for _, b := range bets {
		m.Count++
		m.StakeTotal += b.Stake
		ret := GrossReturn(b)
		m.ReturnTotal += ret
		m.Net += ret - b.Stake
		switch b.Outcome {
		case OutcomeWon:
			m.Wins++
		case OutcomeLost:
			m.Losses++
		default:
			m.Pending++
		}
	}
	return m
}
