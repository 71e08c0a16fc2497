package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"f0oster/svcspy/services"
)

// stateFile is the on-disk layout. Timestamp mirrors the inventory's own
// capture time so the file is self-describing.
type stateFile struct {
	Timestamp time.Time                    `json:"Timestamp"`
	Services  map[string]services.Snapshot `json:"Services"`
}

// Store persists one inventory as JSON at a fixed path. There is no locking:
// concurrent runs against the same path race and the last writer wins.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the previously persisted inventory. A missing file returns
// (nil, nil) so a first run is indistinguishable from a reset. Malformed or
// unreadable content returns an error the caller is expected to degrade to
// "no previous state".
func (s *Store) Load() (*services.Inventory, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", s.path, err)
	}

	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	if state.Services == nil {
		state.Services = make(map[string]services.Snapshot)
	}
	return &services.Inventory{
		CapturedAt: state.Timestamp,
		Services:   state.Services,
	}, nil
}

// Save persists the inventory, replacing any previous state. The write goes
// to a temporary file in the same directory followed by a rename, so an
// interrupted run never leaves a half-written state file behind.
func (s *Store) Save(inventory services.Inventory) error {
	data, err := json.MarshalIndent(stateFile{
		Timestamp: inventory.CapturedAt,
		Services:  inventory.Services,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temporary state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temporary state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temporary state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file %s: %w", s.path, err)
	}
	return nil
}
