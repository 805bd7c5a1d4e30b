package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
)

// SnapshotFile is the name of the persisted snapshot inside the directory.
const SnapshotFile = "holidays.json"

// Storage handles persistence of holiday snapshots and published files
type Storage struct {
	dir string
}

// New creates a new Storage instance rooted at dir, creating it if needed.
func New(dir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dir: dir,
	}, nil
}

// Dir returns the resolved directory.
func (s *Storage) Dir() string {
	return s.dir
}

// Path returns the path of name inside the storage directory.
func (s *Storage) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// LoadSnapshot loads the last saved snapshot. A missing file yields an
// empty snapshot, not an error.
func (s *Storage) LoadSnapshot() (*holiday.Snapshot, error) {
	data, err := os.ReadFile(s.Path(SnapshotFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &holiday.Snapshot{Years: []int{}, Records: []holiday.Record{}}, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot holiday.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	if snapshot.Records == nil {
		snapshot.Records = []holiday.Record{}
	}
	if snapshot.Years == nil {
		snapshot.Years = holiday.Years(snapshot.Records)
	}

	return &snapshot, nil
}

// SaveSnapshot writes snapshot to disk.
func (s *Storage) SaveSnapshot(snapshot *holiday.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := s.WriteFile(SnapshotFile, data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	return nil
}

// WriteFile replaces name with data. The content is written to a temporary
// file in the same directory and renamed into place.
func (s *Storage) WriteFile(name string, data []byte) error {
	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting permissions on %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", name, err)
	}

	return nil
}

// ReadFile returns the content of name.
func (s *Storage) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(s.Path(name))
}
