package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// State is the persisted session record.
type State struct {
	Authenticated bool          // Whether a token exchange has completed
	Token         *oauth2.Token // Latest token, refreshed tokens included
	UpdatedAt     time.Time     // Last write
}

// Store manages the session file with thread-safe access and persistence
type Store struct {
	mu       sync.RWMutex
	current  State
	filePath string // Path to session file; empty disables persistence
}

// persistedState is the JSON representation of state for disk storage
type persistedState struct {
	Authenticated bool          `json:"authenticated"`
	Token         *oauth2.Token `json:"token,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewStore creates a Store.
// If filePath is provided, attempts to restore state from disk
func NewStore(filePath string) (*Store, error) {
	s := &Store{
		filePath: filePath,
	}

	if filePath != "" {
		if err := s.restore(); err != nil && !os.IsNotExist(err) {
			// Corrupt file: start unauthenticated but report it
			return s, err
		}
	}

	return s, nil
}

// Get returns a copy of the current state
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save records an authenticated token
func (s *Store) Save(tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = State{
		Authenticated: tok != nil,
		Token:         tok,
		UpdatedAt:     time.Now(),
	}
	return s.persist()
}

// Clear drops the session and removes the file
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = State{}
	if s.filePath == "" {
		return nil
	}
	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// persist saves the current state to disk
// Must be called with lock held
func (s *Store) persist() error {
	if s.filePath == "" {
		return nil
	}

	data, err := json.MarshalIndent(persistedState(s.current), "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return err
	}

	// Tokens are credentials: owner-only permissions, atomic replace
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.filePath)
}

// restore loads state from disk
func (s *Store) restore() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var ps persistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = State(ps)
	return nil
}
