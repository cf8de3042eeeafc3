package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/invictos/bet-ledger/internal/ledger"
)

// OpKind is the kind of a queued mutation.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Operation is a mutation that could not reach the Remote Authority when it
// was issued. Operations replay strictly in enqueue order and are removed
// only once confirmed applied remotely.
type Operation struct {
	Kind      OpKind           `json:"kind"`
	BetID     string           `json:"bet_id"`
	Bet       *ledger.Bet      `json:"bet,omitempty"`   // full snapshot, create only
	Patch     *ledger.BetPatch `json:"patch,omitempty"` // partial patch, update only
	CreatedAt time.Time        `json:"created_at"`
	Attempts  int              `json:"attempts,omitempty"` // rejected replay attempts
}

const (
	betsFile  = "bets.json"
	queueFile = "pending_ops.json"
	deadFile  = "dead_ops.json"
	syncFile  = "sync.json"
)

// Store is the durable per-user cache of the ledger plus the pending
// operation queue. Partitions are keyed by user id; an operation never
// touches another user's partition.
type Store struct {
	root string
}

// New returns a store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the directory holding the per-user partitions.
func (s *Store) Root() string { return s.root }

func (s *Store) userDir(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("store: empty user id")
	}
	dir := filepath.Join(s.root, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create user partition: %w", err)
	}
	return dir, nil
}

// LoadBets reads the cached ledger snapshot. Absent or corrupt files read as
// empty; corruption is swallowed, never fatal.
func (s *Store) LoadBets(userID string) ([]ledger.Bet, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, betsFile))
	if err != nil {
		return nil, nil
	}
	var bets []ledger.Bet
	if err := json.Unmarshal(raw, &bets); err != nil {
		return nil, nil
	}
	return bets, nil
}

// SaveBets atomically overwrites the user's cached ledger snapshot.
func (s *Store) SaveBets(userID string, bets []ledger.Bet) error {
	dir, err := s.userDir(userID)
	if err != nil {
		return err
	}
	if bets == nil {
		bets = []ledger.Bet{}
	}
	raw, err := json.MarshalIndent(bets, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bets: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, betsFile), raw)
}

// LoadQueue reads the pending operation queue in enqueue order. Absent or
// corrupt files read as empty.
func (s *Store) LoadQueue(userID string) ([]Operation, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, queueFile))
	if err != nil {
		return nil, nil
	}
	var ops []Operation
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, nil
	}
	return ops, nil
}

// SaveQueue atomically overwrites the pending queue.
func (s *Store) SaveQueue(userID string, ops []Operation) error {
	dir, err := s.userDir(userID)
	if err != nil {
		return err
	}
	if ops == nil {
		ops = []Operation{}
	}
	raw, err := json.MarshalIndent(ops, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, queueFile), raw)
}

// AppendOperation appends op to the queue, preserving prior ordering.
func (s *Store) AppendOperation(userID string, op Operation) error {
	ops, err := s.LoadQueue(userID)
	if err != nil {
		return err
	}
	return s.SaveQueue(userID, append(ops, op))
}

// AppendDeadOperation moves a permanently-rejected operation into the
// dead-letter file for later inspection.
func (s *Store) AppendDeadOperation(userID string, op Operation) error {
	dir, err := s.userDir(userID)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, deadFile)
	var ops []Operation
	if raw, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(raw, &ops)
	}
	ops = append(ops, op)
	raw, err := json.MarshalIndent(ops, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dead queue: %w", err)
	}
	return writeFileAtomic(path, raw)
}

type syncState struct {
	LastSync time.Time `json:"last_sync"`
}

// LoadWatermark reads the last-synchronized timestamp. Absent or corrupt
// reads as zero, which triggers a full pull.
func (s *Store) LoadWatermark(userID string) (time.Time, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return time.Time{}, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, syncFile))
	if err != nil {
		return time.Time{}, nil
	}
	var st syncState
	if err := json.Unmarshal(raw, &st); err != nil {
		return time.Time{}, nil
	}
	return st.LastSync, nil
}

// SaveWatermark atomically stores the new watermark.
func (s *Store) SaveWatermark(userID string, t time.Time) error {
	dir, err := s.userDir(userID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(syncState{LastSync: t.UTC()})
	if err != nil {
		return fmt.Errorf("marshal watermark: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, syncFile), raw)
}

// writeFileAtomic writes via a temp file in the same directory plus rename,
// so readers never observe a half-written snapshot.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
