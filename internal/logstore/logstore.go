// Package logstore provides bounded on-disk persistence for service log
// chunks, so the log pane survives panel restarts. Each chunk is stored as
// a separate timestamped JSON file. Auto-cleanup enforces the size limit by
// dropping the oldest chunks.
package logstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chatstack/chatpanel/internal/models"
)

// Store persists log chunks under a size-capped directory.
type Store struct {
	dir       string
	maxSizeMB int
	logger    *zap.Logger
	mu        sync.Mutex
}

// New creates a store at the given directory path, creating it if needed.
func New(dir string, maxSizeMB int, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	return &Store{
		dir:       dir,
		maxSizeMB: maxSizeMB,
		logger:    logger,
	}, nil
}

// Append saves a chunk to a timestamped JSON file. If the store exceeds the
// configured size limit, the oldest chunk is dropped first.
func (s *Store) Append(chunk models.LogChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentSizeMB() >= s.maxSizeMB {
		s.logger.Warn("Log store full, dropping oldest chunk")
		s.dropOldest()
	}

	filename := filepath.Join(s.dir,
		time.Now().UTC().Format("20060102T150405.000000")+".json")
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0640)
}

// LoadAll reads every stored chunk in chronological order without removing
// anything. Corrupted files are removed and logged.
func (s *Store) LoadAll() ([]models.LogChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var chunks []models.LogChunk
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("Failed to read log chunk",
				zap.String("file", path),
				zap.Error(err))
			continue
		}

		var chunk models.LogChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			s.logger.Warn("Removing corrupted log chunk",
				zap.String("file", path),
				zap.Error(err))
			os.Remove(path)
			continue
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// Count returns the number of stored chunk files.
func (s *Store) Count() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			count++
		}
	}
	return count
}

// currentSizeMB returns the total size of all chunk files in megabytes.
// Must be called with s.mu held.
func (s *Store) currentSizeMB() int {
	var totalSize int64
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	for _, entry := range entries {
		if info, err := entry.Info(); err == nil {
			totalSize += info.Size()
		}
	}
	return int(totalSize / (1024 * 1024))
}

// dropOldest removes the oldest chunk file to free space.
// Must be called with s.mu held. Directory order is lexicographic, which
// matches chronological order for the timestamped filenames.
func (s *Store) dropOldest() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			path := filepath.Join(s.dir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn("Failed to remove oldest log chunk",
					zap.String("file", path),
					zap.Error(err))
			}
			return
		}
	}
}
