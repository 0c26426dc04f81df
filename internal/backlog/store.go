package backlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"flowcast/internal/forecast"

	"github.com/rs/zerolog/log"
)

// Store provides thread-safe access to named backlog snapshots cached as JSON files.
type Store struct {
	mu        sync.RWMutex
	cacheDir  string
	snapshots map[string]*Snapshot
}

// NewStore creates a store backed by the given cache directory.
func NewStore(cacheDir string) *Store {
	return &Store{
		cacheDir:  cacheDir,
		snapshots: make(map[string]*Snapshot),
	}
}

// Get returns the snapshot with the given name, loading it from the cache on first use.
func (s *Store) Get(name string) (*Snapshot, error) {
	s.mu.RLock()
	snap, ok := s.snapshots[name]
	s.mu.RUnlock()
	if ok {
		return snap, nil
	}

	snap, err := ReadSnapshot(s.path(name))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.snapshots[name]; ok {
		return existing, nil
	}
	s.snapshots[name] = snap
	return snap, nil
}

// Save persists the named snapshot to the cache directory.
func (s *Store) Save(name string) error {
	s.mu.RLock()
	snap, ok := s.snapshots[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("snapshot %q not loaded", name)
	}
	return WriteSnapshot(s.path(name), snap)
}

// Archive appends the current forecasts of the given features to the snapshot's history.
func (s *Store) Archive(name string, features []*Feature, at time.Time) error {
	return AppendHistory(s.historyPath(name), features, at)
}

// History returns the archived forecast records of the named snapshot, oldest first.
func (s *Store) History(name string) ([]HistoryRecord, error) {
	return ReadHistory(s.historyPath(name))
}

// FilterHistory keeps the records of one feature, all features when featureID is empty,
// and at most the last limit of them when limit is positive.
func FilterHistory(records []HistoryRecord, featureID string, limit int) []HistoryRecord {
	var out []HistoryRecord
	for _, rec := range records {
		if featureID == "" || rec.FeatureID == featureID {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (s *Store) historyPath(name string) string {
	return filepath.Join(s.cacheDir, fmt.Sprintf("%s-history.jsonl", name))
}

func (s *Store) path(name string) string {
	return filepath.Join(s.cacheDir, fmt.Sprintf("%s.json", name))
}

// ReadSnapshot loads a snapshot from a JSON file.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("teams", len(snap.Teams)).Int("features", len(snap.Features)).Msg("Loaded backlog snapshot")
	return &snap, nil
}

// WriteSnapshot persists a snapshot atomically.
func WriteSnapshot(path string, snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp snapshot file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	log.Info().Str("path", path).Int("features", len(snap.Features)).Msg("Backlog snapshot saved")
	return nil
}

// HistoryRecord is one archived forecast state of a feature.
type HistoryRecord struct {
	FeatureID      string                  `json:"feature_id"`
	Name           string                  `json:"name"`
	RemainingItems int                     `json:"remaining_items"`
	ArchivedAt     time.Time               `json:"archived_at"`
	Forecasts      []forecast.WhenForecast `json:"forecasts"`
}

// AppendHistory appends one JSONL record per feature to the history file.
func AppendHistory(path string, features []*Feature, at time.Time) error {
	if len(features) == 0 {
		return nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)

	for _, f := range features {
		rec := HistoryRecord{
			FeatureID:      f.ID,
			Name:           f.Name,
			RemainingItems: f.RemainingWork(),
			ArchivedAt:     at,
			Forecasts:      f.Forecasts,
		}
		if err := encoder.Encode(rec); err != nil {
			file.Close()
			return fmt.Errorf("failed to encode history record: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush history: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close history file: %w", err)
	}

	log.Debug().Str("path", path).Int("features", len(features)).Msg("Archived feature forecasts")
	return nil
}

// ReadHistory loads all archived records, skipping lines that cannot be decoded.
func ReadHistory(path string) ([]HistoryRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	defer file.Close()

	var records []HistoryRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var rec HistoryRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping invalid JSON line in history")
			continue
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading history: %w", err)
	}
	return records, nil
}
