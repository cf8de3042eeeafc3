package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/invictos/bet-ledger/internal/ledger"
)

func TestLoadBetsAbsentIsEmpty(t *testing.T) {
	s := New(t.TempDir())
	bets, err := s.LoadBets("u1")
	require.NoError(t, err)
	require.Empty(t, bets)
}

func TestSaveAndLoadBetsRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	cash := 15.5
	bets := []ledger.Bet{
		{
			ID:        "b1",
			EventDate: ledger.NewDate(2025, time.July, 14),
			Type:      ledger.TypeSingle,
			Detail:    "over 2.5",
			Stake:     80,
			Odds:      1.92,
			Outcome:   ledger.OutcomePending,
			CreatedAt: time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC),
			UpdatedAt: time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:        "b2",
			EventDate: ledger.NewDate(2025, time.July, 15),
			Type:      ledger.TypeParlay,
			Detail:    "combo",
			Stake:     20,
			Odds:      3.255,
			Cashout:   &cash,
			Outcome:   ledger.OutcomeWon,
			Legs: []ledger.ParlayLeg{
				{ID: "l1", Detail: "a", Odds: 1.55},
				{ID: "l2", Detail: "b", Odds: 2.1},
			},
		},
	}
	require.NoError(t, s.SaveBets("u1", bets))

	back, err := s.LoadBets("u1")
	require.NoError(t, err)
	require.Equal(t, bets, back)
}

func TestCorruptCacheReadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "u1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "u1", "bets.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "u1", "pending_ops.json"), []byte("also broken"), 0o644))

	bets, err := s.LoadBets("u1")
	require.NoError(t, err)
	require.Empty(t, bets)

	ops, err := s.LoadQueue("u1")
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestAppendOperationPreservesOrder(t *testing.T) {
	s := New(t.TempDir())
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.AppendOperation("u1", Operation{
			Kind:      OpDelete,
			BetID:     id,
			CreatedAt: time.Now().UTC(),
		}))
	}
	ops, err := s.LoadQueue("u1")
	require.NoError(t, err)
	require.Len(t, ops, 3)
	require.Equal(t, "a", ops[0].BetID)
	require.Equal(t, "b", ops[1].BetID)
	require.Equal(t, "c", ops[2].BetID)
}

func TestPartitionsAreIsolated(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.SaveBets("u1", []ledger.Bet{{ID: "mine"}}))
	require.NoError(t, s.AppendOperation("u1", Operation{Kind: OpDelete, BetID: "mine"}))

	bets, err := s.LoadBets("u2")
	require.NoError(t, err)
	require.Empty(t, bets)

	ops, err := s.LoadQueue("u2")
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestWatermarkRoundTrip(t *testing.T) {
	s := New(t.TempDir())

	wm, err := s.LoadWatermark("u1")
	require.NoError(t, err)
	require.True(t, wm.IsZero())

	ts := time.Date(2025, 7, 14, 12, 30, 0, 0, time.UTC)
	require.NoError(t, s.SaveWatermark("u1", ts))

	wm, err = s.LoadWatermark("u1")
	require.NoError(t, err)
	require.True(t, ts.Equal(wm))
}

func TestEmptyUserIDRejected(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.LoadBets("")
	require.Error(t, err)
}
