// Package simstate persists paper-trading wallets so simulated runs keep
// balances and fill history across restarts.
package simstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/avolkov/bandbot/internal/domain"
)

const defaultStateDir = "./wal/simulate"

// Store persists simulator state per trading pair.
type Store struct {
	path string
}

func getStateDir() string {
	if stateDir := os.Getenv("BANDBOT_SIMULATE_STATE_DIR"); stateDir != "" {
		return stateDir
	}
	return defaultStateDir
}

// NewStore creates a simulator state store for the given pair.
func NewStore(pair domain.Pair) (*Store, error) {
	stateDir := getStateDir()
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create simulate state dir")
	}

	fullName := fmt.Sprintf("%s.json", strings.ToLower(pair.String()))

	return &Store{path: filepath.Join(stateDir, fullName)}, nil
}

// StoredOrder is a serialized simulated fill.
type StoredOrder struct {
	Side        string `json:"side"`
	Status      string `json:"status"`
	Quantity    string `json:"quantity"`
	FillPrice   string `json:"fill_price"`
	ExecutedQty string `json:"executed_qty"`
}

// State represents all persisted simulator data.
type State struct {
	Pair   string                 `json:"pair"`
	Wallet map[string]string      `json:"wallet"`
	Orders map[string]StoredOrder `json:"orders,omitempty"`
}

// Load reads simulator state from disk. Returns nil when no state exists yet.
func (s *Store) Load() (*State, error) {
	if s == nil || s.path == "" {
		return nil, nil
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read simulate state")
	}
	if len(payload) == 0 {
		return nil, nil
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, errors.Wrap(err, "decode simulate state")
	}

	return &state, nil
}

// Save writes simulator state to disk atomically via temp file.
func (s *Store) Save(state State) error {
	if s == nil || s.path == "" {
		return nil
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode simulate state")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write simulate state temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist simulate state")
	}

	return nil
}
