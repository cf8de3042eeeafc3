package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/invictos/bet-ledger/internal/client/api"
	"github.com/invictos/bet-ledger/internal/client/state"
	"github.com/invictos/bet-ledger/internal/client/store"
	"github.com/invictos/bet-ledger/internal/ledger"
)

// fakeRemote is an in-memory Remote Authority. offline switches every call
// to a connectivity failure; offlineAfter goes offline after that many
// successful mutations (-1 never); reject turns mutations into definitive
// rejections.
type fakeRemote struct {
	offline      bool
	offlineAfter int
	reject       bool
	onMutate     func() // runs before each accepted mutation

	bets    map[string]ledger.Bet
	applied []string // "<kind>:<bet id>" in arrival order
	clock   time.Time
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		offlineAfter: -1,
		bets:         make(map[string]ledger.Bet),
		clock:        time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRemote) gate() error {
	if f.offline {
		return &api.ConnectivityError{Err: errors.New("connection refused")}
	}
	if f.reject {
		return &api.RejectionError{Status: 400, Message: "stake must be > 0"}
	}
	return nil
}

func (f *fakeRemote) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	if f.offlineAfter > 0 {
		f.offlineAfter--
		if f.offlineAfter == 0 {
			f.offline = true
		}
	}
	return f.clock
}

func (f *fakeRemote) CreateBet(_ context.Context, b ledger.Bet) (ledger.Bet, error) {
	if err := f.gate(); err != nil {
		return ledger.Bet{}, err
	}
	if f.onMutate != nil {
		f.onMutate()
	}
	now := f.tick()
	b.CreatedAt = now
	b.UpdatedAt = now
	for i := range b.Legs {
		b.Legs[i].ID = fmt.Sprintf("leg-%d", i)
	}
	f.bets[b.ID] = b
	f.applied = append(f.applied, "create:"+b.ID)
	return b, nil
}

func (f *fakeRemote) UpdateBet(_ context.Context, id string, patch ledger.BetPatch) (ledger.Bet, error) {
	if err := f.gate(); err != nil {
		return ledger.Bet{}, err
	}
	b, ok := f.bets[id]
	if !ok {
		return ledger.Bet{}, &api.RejectionError{Status: 404, Message: "bet not found"}
	}
	b = patch.Apply(b)
	b.UpdatedAt = f.tick()
	f.bets[id] = b
	f.applied = append(f.applied, "update:"+id)
	return b, nil
}

func (f *fakeRemote) DeleteBet(_ context.Context, id string) error {
	if err := f.gate(); err != nil {
		return err
	}
	if _, ok := f.bets[id]; !ok {
		return &api.RejectionError{Status: 404, Message: "bet not found"}
	}
	delete(f.bets, id)
	f.tick()
	f.applied = append(f.applied, "delete:"+id)
	return nil
}

func (f *fakeRemote) ListBets(_ context.Context, _, _ *ledger.Date) ([]ledger.Bet, error) {
	if err := f.gate(); err != nil {
		return nil, err
	}
	out := make([]ledger.Bet, 0, len(f.bets))
	for _, b := range f.bets {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeRemote) SyncSince(_ context.Context, since time.Time) (api.SyncResult, error) {
	if err := f.gate(); err != nil {
		return api.SyncResult{}, err
	}
	res := api.SyncResult{LastSync: f.tick()}
	for _, b := range f.bets {
		if since.IsZero() || !b.UpdatedAt.Before(since) {
			res.Items = append(res.Items, b)
		}
	}
	return res, nil
}

func newTestReconciler(t *testing.T, remote RemoteAuthority) (*Reconciler, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir())
	view := state.NewView(nil)
	return New(remote, st, view, "u1", zap.NewNop()), st
}

func pendingSingle(stake, odds float64) ledger.Bet {
	return ledger.Bet{
		EventDate: ledger.NewDate(2025, time.July, 14),
		Type:      ledger.TypeSingle,
		Detail:    "test bet",
		Stake:     stake,
		Odds:      odds,
		Outcome:   ledger.OutcomePending,
	}
}

func TestCreateOnlineUsesServerCopy(t *testing.T) {
	remote := newFakeRemote()
	rec, st := newTestReconciler(t, remote)

	created, queued, err := rec.Create(context.Background(), pendingSingle(80, 1.92))
	require.NoError(t, err)
	require.False(t, queued)
	require.False(t, created.CreatedAt.IsZero())

	got, ok := rec.View().Get(created.ID)
	require.True(t, ok)
	require.Equal(t, created, got)

	ops, err := st.LoadQueue("u1")
	require.NoError(t, err)
	require.Empty(t, ops)

	// The snapshot was persisted too.
	bets, err := st.LoadBets("u1")
	require.NoError(t, err)
	require.Len(t, bets, 1)
}

func TestCreateValidationRejectedBeforeNetwork(t *testing.T) {
	remote := newFakeRemote()
	remote.offline = true // a validation failure must never reach the queue
	rec, st := newTestReconciler(t, remote)

	_, _, err := rec.Create(context.Background(), pendingSingle(0, 1.92))
	require.ErrorIs(t, err, ledger.ErrValidation)

	ops, err := st.LoadQueue("u1")
	require.NoError(t, err)
	require.Empty(t, ops)
	require.Zero(t, rec.View().Len())
}

func TestCreateOfflineAppliesOptimisticallyAndQueues(t *testing.T) {
	remote := newFakeRemote()
	remote.offline = true
	rec, st := newTestReconciler(t, remote)

	created, queued, err := rec.Create(context.Background(), pendingSingle(80, 1.92))
	require.NoError(t, err)
	require.True(t, queued)
	require.False(t, created.UpdatedAt.IsZero()) // locally stamped

	got, ok := rec.View().Get(created.ID)
	require.True(t, ok)
	require.InDelta(t, -80, ledger.Net(got), 1e-9)

	ops, err := st.LoadQueue("u1")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, store.OpCreate, ops[0].Kind)
	require.NotNil(t, ops[0].Bet)
}

func TestSynchronousRejectionDoesNotTouchLocalState(t *testing.T) {
	remote := newFakeRemote()
	remote.reject = true
	rec, st := newTestReconciler(t, remote)

	_, _, err := rec.Create(context.Background(), pendingSingle(80, 1.92))
	require.True(t, api.IsRejection(err))
	require.Zero(t, rec.View().Len())

	ops, err := st.LoadQueue("u1")
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestReplayPreservesEnqueueOrder(t *testing.T) {
	remote := newFakeRemote()
	remote.offline = true
	rec, st := newTestReconciler(t, remote)
	ctx := context.Background()

	created, queued, err := rec.Create(ctx, pendingSingle(80, 1.92))
	require.NoError(t, err)
	require.True(t, queued)

	stake := 100.0
	_, queued, err = rec.Update(ctx, created.ID, ledger.BetPatch{Stake: &stake})
	require.NoError(t, err)
	require.True(t, queued)

	outcome := ledger.OutcomeWon
	_, queued, err = rec.Update(ctx, created.ID, ledger.BetPatch{Outcome: &outcome})
	require.NoError(t, err)
	require.True(t, queued)

	remote.offline = false
	require.NoError(t, rec.Flush(ctx))

	require.Equal(t, []string{
		"create:" + created.ID,
		"update:" + created.ID,
		"update:" + created.ID,
	}, remote.applied)

	ops, err := st.LoadQueue("u1")
	require.NoError(t, err)
	require.Empty(t, ops)

	got, ok := rec.View().Get(created.ID)
	require.True(t, ok)
	require.InDelta(t, 100, got.Stake, 1e-9)
	require.Equal(t, ledger.OutcomeWon, got.Outcome)
}

func TestReplaySwapsOptimisticCopyForServerCopy(t *testing.T) {
	remote := newFakeRemote()
	remote.offline = true
	rec, st := newTestReconciler(t, remote)
	ctx := context.Background()

	created, _, err := rec.Create(ctx, pendingSingle(80, 1.92))
	require.NoError(t, err)
	optimisticStamp := created.UpdatedAt

	remote.offline = false
	require.NoError(t, rec.Flush(ctx))

	ops, err := st.LoadQueue("u1")
	require.NoError(t, err)
	require.Empty(t, ops)

	got, ok := rec.View().Get(created.ID)
	require.True(t, ok)
	require.False(t, got.UpdatedAt.Equal(optimisticStamp))
	require.True(t, got.UpdatedAt.Equal(remote.bets[created.ID].UpdatedAt))
}

func TestFlushHaltsOnConnectivityKeepingSuffix(t *testing.T) {
	remote := newFakeRemote()
	remote.offline = true
	rec, st := newTestReconciler(t, remote)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		created, _, err := rec.Create(ctx, pendingSingle(10+float64(i), 2.0))
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	// First replayed op succeeds, then the link drops again.
	remote.offline = false
	remote.offlineAfter = 1
	err := rec.Flush(ctx)
	require.True(t, api.IsConnectivity(err))

	ops, lerr := st.LoadQueue("u1")
	require.NoError(t, lerr)
	require.Len(t, ops, 2)
	require.Equal(t, ids[1], ops[0].BetID)
	require.Equal(t, ids[2], ops[1].BetID)

	// Connectivity restored: the rest drains in order.
	remote.offline = false
	require.NoError(t, rec.Flush(ctx))
	require.Equal(t, []string{"create:" + ids[0], "create:" + ids[1], "create:" + ids[2]}, remote.applied)

	ops, lerr = st.LoadQueue("u1")
	require.NoError(t, lerr)
	require.Empty(t, ops)
}

func TestFlushPersistsQueueRemovalPerConfirmedOperation(t *testing.T) {
	remote := newFakeRemote()
	remote.offline = true
	rec, st := newTestReconciler(t, remote)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		created, _, err := rec.Create(ctx, pendingSingle(10+float64(i), 2.0))
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	// Snapshot the durable queue as each replayed create arrives at the
	// remote: the previously confirmed ops must already be gone from disk,
	// so a crash between ops cannot replay them.
	var snapshots [][]string
	remote.onMutate = func() {
		ops, err := st.LoadQueue("u1")
		require.NoError(t, err)
		var pending []string
		for _, op := range ops {
			pending = append(pending, op.BetID)
		}
		snapshots = append(snapshots, pending)
	}

	remote.offline = false
	require.NoError(t, rec.Flush(ctx))

	require.Equal(t, [][]string{
		{ids[0], ids[1], ids[2]},
		{ids[1], ids[2]},
		{ids[2]},
	}, snapshots)

	ops, err := st.LoadQueue("u1")
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestOfflineLegsPatchOnSingleBetKeepsInvariant(t *testing.T) {
	remote := newFakeRemote()
	rec, st := newTestReconciler(t, remote)
	ctx := context.Background()

	created, _, err := rec.Create(ctx, pendingSingle(80, 1.92))
	require.NoError(t, err)

	remote.offline = true
	legs := []ledger.LegInput{
		{Detail: "a", Odds: 1.5},
		{Detail: "b", Odds: 2.0},
	}
	updated, queued, err := rec.Update(ctx, created.ID, ledger.BetPatch{Legs: &legs})
	require.NoError(t, err)
	require.True(t, queued)
	require.Equal(t, ledger.TypeSingle, updated.Type)
	require.Empty(t, updated.Legs)
	require.NoError(t, ledger.Validate(updated))

	bets, err := st.LoadBets("u1")
	require.NoError(t, err)
	require.Len(t, bets, 1)
	require.Empty(t, bets[0].Legs)
}

func TestOfflineTypeChangeLeavingLegsRejected(t *testing.T) {
	remote := newFakeRemote()
	rec, st := newTestReconciler(t, remote)
	ctx := context.Background()

	parlay := ledger.Bet{
		EventDate: ledger.NewDate(2025, time.July, 14),
		Type:      ledger.TypeParlay,
		Detail:    "combo",
		Stake:     20,
		Outcome:   ledger.OutcomePending,
		Legs: []ledger.ParlayLeg{
			{Detail: "a", Odds: 1.5},
			{Detail: "b", Odds: 2.0},
		},
	}
	created, _, err := rec.Create(ctx, parlay)
	require.NoError(t, err)

	remote.offline = true
	single := ledger.TypeSingle
	_, _, err = rec.Update(ctx, created.ID, ledger.BetPatch{Type: &single})
	require.ErrorIs(t, err, ledger.ErrValidation)

	// Neither the view nor the queue was touched.
	got, ok := rec.View().Get(created.ID)
	require.True(t, ok)
	require.Equal(t, ledger.TypeParlay, got.Type)
	ops, err := st.LoadQueue("u1")
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestRejectedOperationIsDeadLetteredAfterRepeatedAttempts(t *testing.T) {
	remote := newFakeRemote()
	remote.offline = true
	rec, st := newTestReconciler(t, remote)
	ctx := context.Background()

	created, _, err := rec.Create(ctx, pendingSingle(80, 1.92))
	require.NoError(t, err)

	remote.offline = false
	remote.reject = true
	for i := 0; i < 4; i++ {
		err := rec.Flush(ctx)
		require.True(t, api.IsRejection(err), "attempt %d", i+1)
		ops, lerr := st.LoadQueue("u1")
		require.NoError(t, lerr)
		require.Len(t, ops, 1)
		require.Equal(t, i+1, ops[0].Attempts)
	}

	// Fifth rejection moves the op to the dead-letter file.
	require.NoError(t, rec.Flush(ctx))
	ops, err := st.LoadQueue("u1")
	require.NoError(t, err)
	require.Empty(t, ops)

	raw, err := os.ReadFile(filepath.Join(st.Root(), "u1", "dead_ops.json"))
	require.NoError(t, err)
	var dead []store.Operation
	require.NoError(t, json.Unmarshal(raw, &dead))
	require.Len(t, dead, 1)
	require.Equal(t, created.ID, dead[0].BetID)
}

func TestDeleteOfflineThenReplay(t *testing.T) {
	remote := newFakeRemote()
	rec, st := newTestReconciler(t, remote)
	ctx := context.Background()

	created, _, err := rec.Create(ctx, pendingSingle(80, 1.92))
	require.NoError(t, err)

	remote.offline = true
	queued, err := rec.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, queued)
	_, ok := rec.View().Get(created.ID)
	require.False(t, ok)

	remote.offline = false
	require.NoError(t, rec.Flush(ctx))
	require.Empty(t, remote.bets)

	ops, err := st.LoadQueue("u1")
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestPullFullReplacesViewAndStoresWatermark(t *testing.T) {
	remote := newFakeRemote()
	seed, err := remote.CreateBet(context.Background(), func() ledger.Bet {
		b := pendingSingle(40, 2.5)
		b.ID = "remote-1"
		return b
	}())
	require.NoError(t, err)

	rec, st := newTestReconciler(t, remote)
	rec.View().Upsert(pendingSingle(1, 2)) // stale local-only leftovers

	require.NoError(t, rec.Pull(context.Background()))
	require.Equal(t, 1, rec.View().Len())
	got, ok := rec.View().Get(seed.ID)
	require.True(t, ok)
	require.True(t, got.UpdatedAt.Equal(seed.UpdatedAt))

	wm, err := st.LoadWatermark("u1")
	require.NoError(t, err)
	require.False(t, wm.IsZero())
}

func TestIncrementalPullKeepsNewerLocalCopy(t *testing.T) {
	remote := newFakeRemote()
	seed, err := remote.CreateBet(context.Background(), func() ledger.Bet {
		b := pendingSingle(40, 2.5)
		b.ID = "remote-1"
		return b
	}())
	require.NoError(t, err)

	rec, st := newTestReconciler(t, remote)
	require.NoError(t, st.SaveWatermark("u1", seed.UpdatedAt.Add(-time.Hour)))

	// Local optimistic edit stamped after the remote copy.
	local := seed
	local.Stake = 999
	local.UpdatedAt = seed.UpdatedAt.Add(time.Hour)
	rec.View().Upsert(local)

	require.NoError(t, rec.Pull(context.Background()))
	got, ok := rec.View().Get(seed.ID)
	require.True(t, ok)
	require.InDelta(t, 999, got.Stake, 1e-9) // local copy was newer, kept
}

func TestOfflineCreateThenSyncEndToEnd(t *testing.T) {
	remote := newFakeRemote()
	remote.offline = true
	rec, st := newTestReconciler(t, remote)
	ctx := context.Background()

	created, queued, err := rec.Create(ctx, pendingSingle(80, 1.92))
	require.NoError(t, err)
	require.True(t, queued)

	ops, err := st.LoadQueue("u1")
	require.NoError(t, err)
	require.Len(t, ops, 1)

	remote.offline = false
	require.NoError(t, rec.Sync(ctx))

	ops, err = st.LoadQueue("u1")
	require.NoError(t, err)
	require.Empty(t, ops)

	got, ok := rec.View().Get(created.ID)
	require.True(t, ok)
	require.Equal(t, ledger.OutcomePending, got.Outcome)
	require.InDelta(t, -80, ledger.Net(got), 1e-9)
	require.True(t, got.UpdatedAt.Equal(remote.bets[created.ID].UpdatedAt))
}
