package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"voice-campaigns-go/internal/types"
)

// Key identifies one user's run state. SessionKey distinguishes concurrent
// browser sessions for the same user and may be empty.
type Key struct {
	UserID     string
	SessionKey string
}

// Store persists the full run state for crash/reload recovery. Lifecycle:
// read once at runner construction, written after every state transition,
// deleted on reset.
type Store interface {
	Get(key Key) (*types.SessionSnapshot, bool, error)
	Put(key Key, snap *types.SessionSnapshot) error
	Delete(key Key) error
}

// FileStore keeps one JSON file per key under dir.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(key Key) string {
	name := "campaign_state_" + sanitize(key.UserID)
	if key.SessionKey != "" {
		name += "_" + sanitize(key.SessionKey)
	}
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) Get(key Key) (*types.SessionSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}
	var snap types.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, true, nil
}

func (s *FileStore) Put(key Key, snap *types.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path(key), payload, 0o644)
}

func (s *FileStore) Delete(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
