package session

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// State is what CLI subcommands remember between runs.
type State struct {
	SessionID string
	Filename  string
	UpdatedAt time.Time
}

// StateStore persists State as a gob file.
type StateStore struct {
	path string
	mu   sync.Mutex
}

func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

func (s *StateStore) Path() string {
	return s.path
}

// Load returns the zero State when nothing was saved yet.
func (s *StateStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("failed to open session state: %w", err)
	}
	defer file.Close()

	var st State
	if err := gob.NewDecoder(file).Decode(&st); err != nil {
		return State{}, fmt.Errorf("failed to decode session state: %w", err)
	}
	return st, nil
}

func (s *StateStore) Save(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to prepare session state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create session state file: %w", err)
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	if err := gob.NewEncoder(file).Encode(st); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode session state: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write session state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Clear forgets the saved session, e.g. after it was deleted remotely.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session state: %w", err)
	}
	return nil
}
