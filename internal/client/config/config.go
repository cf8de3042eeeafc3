package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config drives the betledger client: where the Remote Authority lives, how
// long network calls may take, and where the per-user local cache is kept.
// It is constructed once in main and passed down; there is no process-wide
// singleton.
type Config struct {
	APIURL         string `toml:"api_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	DataDir        string `toml:"data_dir"`
}

const defaultConfigTOML = `# betledger client configuration

# Base URL of the ledger API.
api_url = "http://127.0.0.1:8080"

# Bound on every network call, in seconds. Calls exceeding it are treated
# as a connectivity failure and queued for later replay.
timeout_seconds = 10

# Local cache location. Empty means ~/.betledger.
data_dir = ""
`

// Timeout returns the network call bound as a duration.
func (c Config) Timeout() time.Duration {
	secs := c.TimeoutSeconds
	if secs <= 0 {
		secs = 10
	}
	return time.Duration(secs) * time.Second
}

func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "betledger"), nil
}

// Path returns the full path of the client config file.
func Path() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the TOML config, writing the default file on first run.
// BETLEDGER_API_URL, BETLEDGER_DATA_DIR and BETLEDGER_TIMEOUT override the
// file values.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return Config{}, fmt.Errorf("create config dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTOML), 0o644); err != nil {
			return Config{}, fmt.Errorf("write default config: %w", err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if _, err := toml.NewDecoder(bytes.NewReader(raw)).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.APIURL == "" {
		cfg.APIURL = "http://127.0.0.1:8080"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DataDir = filepath.Join(home, ".betledger")
		}
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BETLEDGER_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("BETLEDGER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("BETLEDGER_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutSeconds = n
		}
	}
}
