package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/phdargen/xoninAgent/internal/core/domain"
	"github.com/phdargen/xoninAgent/internal/core/ports"
)

// JSONStore persists the memory store as a single flat artifact file. It is
// the default backend: CI runs download the previous artifact, run the
// pipeline, and upload the file again.
type JSONStore struct {
	FilePath string
	mu       sync.RWMutex
	data     storeData
	log      *zap.Logger
}

type storeData struct {
	// Records is keyed by mention id; at most one record per mention.
	Records map[string]domain.ProcessedRecord `json:"records"`
	// Minted maps lowercased address -> tx hash for cross-mention dedup.
	Minted map[string]string `json:"minted"`
	// Cursor is the newest mention id handed to the fetcher as since_id.
	Cursor string `json:"cursor"`
}

func NewJSONStore(filePath string, log *zap.Logger) (*JSONStore, error) {
	s := &JSONStore{
		FilePath: filePath,
		data: storeData{
			Records: make(map[string]domain.ProcessedRecord),
			Minted:  make(map[string]string),
		},
		log: log,
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, err
	}
	s.loadFromFile()
	return s, nil
}

var _ ports.Storage = (*JSONStore)(nil)

// loadFromFile fails open: a missing or corrupt artifact yields an empty
// store. Re-processing is preferred over crashing; the minted-address check
// still guards against double mints once records accumulate again.
func (s *JSONStore) loadFromFile() {
	raw, err := os.ReadFile(s.FilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("memory store unreadable, starting empty", zap.String("path", s.FilePath), zap.Error(err))
		}
		return
	}
	var data storeData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.log.Warn("memory store corrupt, starting empty", zap.String("path", s.FilePath), zap.Error(err))
		return
	}
	if data.Records == nil {
		data.Records = make(map[string]domain.ProcessedRecord)
	}
	if data.Minted == nil {
		data.Minted = make(map[string]string)
	}
	s.data = data
}

func (s *JSONStore) saveToFile() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.FilePath, raw, 0644)
}

func (s *JSONStore) Seen(mentionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data.Records[mentionID]
	return ok && rec.Outcome.Terminal()
}

func (s *JSONStore) MintedAddress(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data.Minted[strings.ToLower(address)]
	return ok
}

// Record writes the record and flushes the artifact before returning, so an
// interrupted run loses at most the in-flight mention.
func (s *JSONStore) Record(rec domain.ProcessedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Records[rec.MentionID] = rec
	if rec.Outcome == domain.OutcomeMinted && rec.Address != "" {
		s.data.Minted[strings.ToLower(rec.Address)] = rec.TxHash
	}
	return s.saveToFile()
}

func (s *JSONStore) LoadCursor() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Cursor, nil
}

func (s *JSONStore) SaveCursor(sinceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Cursor = sinceID
	return s.saveToFile()
}

func (s *JSONStore) Records() []domain.ProcessedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]domain.ProcessedRecord, 0, len(s.data.Records))
	for _, r := range s.data.Records {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ProcessedAt.Before(recs[j].ProcessedAt) })
	return recs
}
