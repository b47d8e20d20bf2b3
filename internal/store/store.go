// Package store persists the session and layout state across restarts.
// Writes are atomic: a temp file in the target directory is renamed
// over the previous snapshot, so readers never observe a torn file.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	muxerrors "github.com/Iron-Ham/agentmux/internal/errors"
	"github.com/Iron-Ham/agentmux/internal/layout"
	"github.com/Iron-Ham/agentmux/internal/logging"
	"github.com/Iron-Ham/agentmux/internal/session"
)

// Snapshot is the persisted shape: all sessions, each worktree's
// layout, and the per-worktree fallback selection.
type Snapshot struct {
	Sessions    []session.Session       `json:"sessions"`
	GroupStates map[string]layout.State `json:"group_states"`
	LastActive  map[string]string       `json:"last_active"`
}

// Store reads and writes snapshots at a fixed path.
type Store struct {
	path string
	log  *logging.Logger
}

// New builds a Store writing to path. A nil logger defaults to a no-op
// logger.
func New(path string, log *logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{path: path, log: log.WithComponent("store")}
}

// Path returns the snapshot file path.
func (s *Store) Path() string { return s.path }

// Save writes the snapshot atomically.
func (s *Store) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	s.log.Debug("state saved", "path", s.path, "sessions", len(snap.Sessions))
	return nil
}

// Load reads the snapshot. A missing file returns an empty snapshot,
// not an error; a corrupt file returns the unmarshalling error.
func (s *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptySnapshot(), nil
		}
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, muxerrors.Join(err, muxerrors.New("state file is corrupt"))
	}
	if snap.GroupStates == nil {
		snap.GroupStates = make(map[string]layout.State)
	}
	if snap.LastActive == nil {
		snap.LastActive = make(map[string]string)
	}
	for path, st := range snap.GroupStates {
		st.Normalize()
		snap.GroupStates[path] = st
	}
	return snap, nil
}

func emptySnapshot() Snapshot {
	return Snapshot{
		GroupStates: make(map[string]layout.State),
		LastActive:  make(map[string]string),
	}
}
