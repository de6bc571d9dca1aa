package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"voice-campaigns-go/internal/types"
)

// maxRecords caps how much history is kept per user; oldest runs fall off.
const maxRecords = 50

// Store is the append-only campaign history. Records are never mutated after
// creation.
type Store interface {
	Append(userID string, rec types.CampaignRecord) error
	List(userID string) ([]types.CampaignRecord, error)
	Delete(userID, recordID string) error
}

// FileStore keeps one JSON file per user, newest record first.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(userID string) string {
	return filepath.Join(s.dir, "campaign_history_"+userID+".json")
}

func (s *FileStore) load(userID string) ([]types.CampaignRecord, error) {
	data, err := os.ReadFile(s.path(userID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var records []types.CampaignRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return records, nil
}

func (s *FileStore) save(userID string, records []types.CampaignRecord) error {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path(userID), payload, 0o644)
}

func (s *FileStore) Append(userID string, rec types.CampaignRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(userID)
	if err != nil {
		return err
	}
	records = append([]types.CampaignRecord{rec}, records...)
	if len(records) > maxRecords {
		records = records[:maxRecords]
	}
	return s.save(userID, records)
}

func (s *FileStore) List(userID string) ([]types.CampaignRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(userID)
}

func (s *FileStore) Delete(userID, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(userID)
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, r := range records {
		if r.ID != recordID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return s.save(userID, kept)
}
