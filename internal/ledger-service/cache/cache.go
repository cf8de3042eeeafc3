package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/invictos/bet-ledger/internal/ledger"
)

const ttl = 60 * time.Second

// BetList caches each user's full bet list. Reads and writes are best effort:
// a cache failure never fails the request, the caller falls through to the
// database.
type BetList struct {
	rdb *redis.Client
}

func NewBetList(rdb *redis.Client) *BetList { return &BetList{rdb: rdb} }

func key(userID string) string { return "bets:" + userID }

// Get returns the cached list and whether it was present.
func (c *BetList) Get(ctx context.Context, userID string) ([]ledger.Bet, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var bets []ledger.Bet
	if err := json.Unmarshal(raw, &bets); err != nil {
		return nil, false
	}
	return bets, true
}

// Set stores the user's full list.
func (c *BetList) Set(ctx context.Context, userID string, bets []ledger.Bet) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(bets)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key(userID), raw, ttl).Err()
}

// Invalidate drops the user's cached list after a mutation.
func (c *BetList) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, key(userID)).Err()
}
