package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/invictos/bet-ledger/internal/client/api"
	"github.com/invictos/bet-ledger/internal/client/state"
	"github.com/invictos/bet-ledger/internal/client/store"
	"github.com/invictos/bet-ledger/internal/ledger"
)

// RemoteAuthority is the contract with the service owning the canonical bet
// records. Implemented by api.Client; tests substitute a fake.
type RemoteAuthority interface {
	CreateBet(ctx context.Context, b ledger.Bet) (ledger.Bet, error)
	UpdateBet(ctx context.Context, id string, patch ledger.BetPatch) (ledger.Bet, error)
	DeleteBet(ctx context.Context, id string) error
	ListBets(ctx context.Context, start, end *ledger.Date) ([]ledger.Bet, error)
	SyncSince(ctx context.Context, since time.Time) (api.SyncResult, error)
}

// maxRejectedAttempts bounds how often a queued operation may be rejected by
// the remote before it is dead-lettered instead of blocking the queue
// forever.
const maxRejectedAttempts = 5

// Reconciler applies ledger mutations against the Remote Authority, falling
// back to optimistic local apply plus a durable FIFO queue when the remote
// is unreachable, and replays that queue when connectivity returns.
//
// Replay is sequential and blocking; callers must not issue new mutations
// for the same user while a replay is in flight.
type Reconciler struct {
	remote RemoteAuthority
	store  *store.Store
	view   *state.View
	userID string
	log    *zap.Logger

	now func() time.Time
}

// New builds a reconciler for one user session.
func New(remote RemoteAuthority, st *store.Store, view *state.View, userID string, log *zap.Logger) *Reconciler {
	return &Reconciler{
		remote: remote,
		store:  st,
		view:   view,
		userID: userID,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// View exposes the in-memory ledger view backing this session.
func (r *Reconciler) View() *state.View { return r.view }

// Create records a new bet. Parlay odds are derived from the legs before
// validation; parlay odds are never entered directly. Returns whether the
// mutation was queued for later replay instead of confirmed remotely.
func (r *Reconciler) Create(ctx context.Context, b ledger.Bet) (ledger.Bet, bool, error) {
	if b.Type == ledger.TypeParlay {
		odds, err := ledger.ParlayOdds(b.Legs)
		if err != nil {
			return ledger.Bet{}, false, err
		}
		b.Odds = odds
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := ledger.Validate(b); err != nil {
		return ledger.Bet{}, false, err
	}

	created, err := r.remote.CreateBet(ctx, b)
	switch {
	case err == nil:
		r.view.Upsert(created)
		return created, false, r.persist()
	case api.IsConnectivity(err):
		now := r.now()
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		b.UpdatedAt = now
		r.view.Upsert(b)
		if qerr := r.enqueue(store.Operation{Kind: store.OpCreate, BetID: b.ID, Bet: &b}); qerr != nil {
			return ledger.Bet{}, false, qerr
		}
		r.log.Info("remote unreachable, bet saved locally", zap.String("betId", b.ID))
		return b, true, r.persist()
	default:
		return ledger.Bet{}, false, err
	}
}

// Update applies a partial patch. Synchronous rejections leave local state
// untouched; connectivity failures apply the patch optimistically with a
// local timestamp and queue the operation.
func (r *Reconciler) Update(ctx context.Context, id string, patch ledger.BetPatch) (ledger.Bet, bool, error) {
	if patch.IsZero() {
		return ledger.Bet{}, false, fmt.Errorf("%w: empty patch", ledger.ErrValidation)
	}
	if err := patch.Validate(); err != nil {
		return ledger.Bet{}, false, err
	}

	updated, err := r.remote.UpdateBet(ctx, id, patch)
	switch {
	case err == nil:
		r.view.Upsert(updated)
		return updated, false, r.persist()
	case api.IsConnectivity(err):
		local, ok := r.view.Get(id)
		if !ok {
			return ledger.Bet{}, false, fmt.Errorf("bet %s not in local ledger", id)
		}
		local = patch.Apply(local)
		if verr := ledger.Validate(local); verr != nil {
			return ledger.Bet{}, false, verr
		}
		local.UpdatedAt = r.now()
		r.view.Upsert(local)
		if qerr := r.enqueue(store.Operation{Kind: store.OpUpdate, BetID: id, Patch: &patch}); qerr != nil {
			return ledger.Bet{}, false, qerr
		}
		r.log.Info("remote unreachable, update queued", zap.String("betId", id))
		return local, true, r.persist()
	default:
		return ledger.Bet{}, false, err
	}
}

// Delete removes a bet. Removing an id already absent locally is a no-op on
// the view.
func (r *Reconciler) Delete(ctx context.Context, id string) (bool, error) {
	err := r.remote.DeleteBet(ctx, id)
	switch {
	case err == nil:
		r.view.Remove(id)
		return false, r.persist()
	case api.IsConnectivity(err):
		r.view.Remove(id)
		if qerr := r.enqueue(store.Operation{Kind: store.OpDelete, BetID: id}); qerr != nil {
			return false, qerr
		}
		r.log.Info("remote unreachable, delete queued", zap.String("betId", id))
		return true, r.persist()
	default:
		return false, err
	}
}

// Flush replays the pending queue strictly in enqueue order. Replay halts on
// the first connectivity failure, leaving the failing operation and
// everything after it queued in original order. A definitive rejection also
// halts, but the rejection is counted against the operation: after
// maxRejectedAttempts the operation is dead-lettered and replay continues,
// so one permanently-invalid mutation cannot wedge the queue forever.
func (r *Reconciler) Flush(ctx context.Context) error {
	queue, err := r.store.LoadQueue(r.userID)
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		return nil
	}

	remaining := queue
	for len(remaining) > 0 {
		op := remaining[0]
		err := r.applyOne(ctx, op)
		if err == nil {
			// Removal is persisted per confirmed operation, so a crash
			// mid-flush never replays an already-applied mutation.
			remaining = remaining[1:]
			if serr := r.store.SaveQueue(r.userID, remaining); serr != nil {
				return serr
			}
			continue
		}
		if api.IsConnectivity(err) {
			r.log.Warn("replay interrupted, remote unreachable",
				zap.String("kind", string(op.Kind)),
				zap.String("betId", op.BetID),
				zap.Int("queued", len(remaining)),
			)
			if serr := r.store.SaveQueue(r.userID, remaining); serr != nil {
				return serr
			}
			if perr := r.persist(); perr != nil {
				return perr
			}
			return err
		}

		// Definitive rejection: distinct from connectivity, logged loudly.
		op.Attempts++
		r.log.Error("queued operation rejected by remote",
			zap.String("kind", string(op.Kind)),
			zap.String("betId", op.BetID),
			zap.Int("attempts", op.Attempts),
			zap.Error(err),
		)
		if op.Attempts >= maxRejectedAttempts {
			r.log.Error("dead-lettering operation after repeated rejections",
				zap.String("kind", string(op.Kind)),
				zap.String("betId", op.BetID),
			)
			if derr := r.store.AppendDeadOperation(r.userID, op); derr != nil {
				return derr
			}
			remaining = remaining[1:]
			if serr := r.store.SaveQueue(r.userID, remaining); serr != nil {
				return serr
			}
			continue
		}
		remaining[0] = op
		if serr := r.store.SaveQueue(r.userID, remaining); serr != nil {
			return serr
		}
		if perr := r.persist(); perr != nil {
			return perr
		}
		return err
	}

	return r.persist()
}

func (r *Reconciler) applyOne(ctx context.Context, op store.Operation) error {
	switch op.Kind {
	case store.OpCreate:
		if op.Bet == nil {
			r.log.Warn("dropping create operation without snapshot", zap.String("betId", op.BetID))
			return nil
		}
		created, err := r.remote.CreateBet(ctx, *op.Bet)
		if err != nil {
			return err
		}
		// The server copy, with server timestamps, replaces the optimistic one.
		r.view.Upsert(created)
		return nil
	case store.OpUpdate:
		if op.Patch == nil {
			r.log.Warn("dropping update operation without patch", zap.String("betId", op.BetID))
			return nil
		}
		updated, err := r.remote.UpdateBet(ctx, op.BetID, *op.Patch)
		if err != nil {
			return err
		}
		r.view.Upsert(updated)
		return nil
	case store.OpDelete:
		if err := r.remote.DeleteBet(ctx, op.BetID); err != nil {
			return err
		}
		r.view.Remove(op.BetID)
		return nil
	default:
		r.log.Warn("dropping operation of unknown kind", zap.String("kind", string(op.Kind)))
		return nil
	}
}

// Pull fetches remote changes since the stored watermark and merges them
// into the view. With no watermark the view is replaced wholesale; otherwise
// a remote copy wins unless the local copy's updated_at is strictly newer
// (a pending optimistic edit). The fresh server timestamp becomes the new
// watermark.
func (r *Reconciler) Pull(ctx context.Context) error {
	watermark, err := r.store.LoadWatermark(r.userID)
	if err != nil {
		return err
	}

	res, err := r.remote.SyncSince(ctx, watermark)
	if err != nil {
		return err
	}

	if watermark.IsZero() {
		r.view.ReplaceAll(res.Items, res.LastSync)
	} else {
		for _, item := range res.Items {
			if local, ok := r.view.Get(item.ID); ok && local.UpdatedAt.After(item.UpdatedAt) {
				continue
			}
			r.view.Upsert(item)
		}
		r.view.SetLastSync(res.LastSync)
	}

	if err := r.persist(); err != nil {
		return err
	}
	return r.store.SaveWatermark(r.userID, res.LastSync)
}

// Sync drains the pending queue and then pulls incremental remote changes.
func (r *Reconciler) Sync(ctx context.Context) error {
	if err := r.Flush(ctx); err != nil {
		return err
	}
	return r.Pull(ctx)
}

func (r *Reconciler) enqueue(op store.Operation) error {
	op.CreatedAt = r.now()
	return r.store.AppendOperation(r.userID, op)
}

func (r *Reconciler) persist() error {
	return r.store.SaveBets(r.userID, r.view.ListAll())
}
