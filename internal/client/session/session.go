package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invictos/bet-ledger/internal/client/api"
)

// Session is the current auth credential: one shared file per machine,
// outside any per-user cache partition.
type Session struct {
	AccessToken string   `json:"access_token"`
	User        api.User `json:"user"`
}

// ErrNotLoggedIn is returned when no session file exists.
var ErrNotLoggedIn = errors.New("not logged in")

func path(dataDir string) string {
	return filepath.Join(dataDir, "session.json")
}

// Load reads the stored session. A corrupt file reads as no session.
func Load(dataDir string) (Session, error) {
	raw, err := os.ReadFile(path(dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, ErrNotLoggedIn
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || s.AccessToken == "" {
		return Session{}, ErrNotLoggedIn
	}
	return s, nil
}

// Save writes the session file, creating the data dir if needed.
func Save(dataDir string, s Session) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(path(dataDir), raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the session file. Missing file is not an error.
func Clear(dataDir string) error {
	err := os.Remove(path(dataDir))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
