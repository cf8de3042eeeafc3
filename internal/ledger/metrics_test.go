package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeEmpty(t *testing.T) {
	m := Compute(nil)
	require.Zero(t, m.StakeTotal)
	require.Zero(t, m.ReturnTotal)
	require.Zero(t, m.Net)
	require.Zero(t, m.Count)
	require.Zero(t, m.YieldPercent())
}

func TestComputeClassification(t *testing.T) {
	cashed := 120.0
	bets := []Bet{
		singleBet(100, 1.92, OutcomeWon),  // +92
		singleBet(50, 2.00, OutcomeLost),  // -50
		singleBet(80, 1.70, OutcomePending), // -80
		func() Bet {
			b := singleBet(60, 3.00, OutcomePending)
			b.Cashout = &cashed // +60, still classified pending by outcome
			return b
		}(),
	}
	m := Compute(bets)
	require.Equal(t, 4, m.Count)
	require.Equal(t, 1, m.Wins)
	require.Equal(t, 1, m.Losses)
	require.Equal(t, 2, m.Pending)
	require.InDelta(t, 290, m.StakeTotal, 1e-9)
	require.InDelta(t, 192+120, m.ReturnTotal, 1e-9)
	require.InDelta(t, 92-50-80+60, m.Net, 1e-9)
	require.InDelta(t, 22.0/290.0*100, m.YieldPercent(), 1e-9)
}

func TestYieldZeroWhenNoStake(t *testing.T) {
	m := SummaryMetrics{Net: 10}
	require.Zero(t, m.YieldPercent())
}
