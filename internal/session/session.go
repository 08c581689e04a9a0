// Package session keeps the latest scanned job between the scan and log commands.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spigell/job-copilot/internal/page"
)

// ErrNoScan is returned by Load when nothing was scanned yet.
var ErrNoScan = errors.New("no scanned job recorded")

// Scan is the outcome of the latest successful scan.
type Scan struct {
	JobContext       *page.JobContext `json:"latestJobContext"`
	SuggestedBullets []string         `json:"latestSuggestedBullets"`
	ScannedAt        time.Time        `json:"scannedAt"`
}

// Store persists a single Scan as a json file.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Save replaces the stored scan. The file is written atomically.
func (s *Store) Save(scan *Scan) error {
	if scan == nil || scan.JobContext == nil {
		return errors.New("scan without job context")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	file, err := os.CreateTemp(dir, ".session_*.json")
	if err != nil {
		return fmt.Errorf("creating session file: %w", err)
	}
	defer os.Remove(file.Name())

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(scan); err != nil {
		file.Close()
		return fmt.Errorf("encoding session: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("closing session file: %w", err)
	}

	if err := os.Rename(file.Name(), s.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}

	return nil
}

// Load returns the stored scan or ErrNoScan.
func (s *Store) Load() (*Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoScan
		}
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	defer file.Close()

	var scan Scan
	if err := json.NewDecoder(file).Decode(&scan); err != nil {
		return nil, fmt.Errorf("decoding session file %q: %w", s.path, err)
	}

	if scan.JobContext == nil {
		return nil, ErrNoScan
	}

	return &scan, nil
}

// Clear forgets the stored scan.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
