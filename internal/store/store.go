// Package store persists the calibrated lock/unlock positions.
// The controller consumes these implementations through its own
// PositionStore interface.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yuewuo/AutoLock/internal/debug"
)

// positions is the on-disk document.
type positions struct {
	LockPos   int `yaml:"lock_pos"`
	UnlockPos int `yaml:"unlock_pos"`
}

// FileStore persists positions to a small YAML file. It is the
// durable store used on the device.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given file path.
// The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes both calibrated positions.
func (s *FileStore) Save(lockPos, unlockPos int) error {
	data, err := yaml.Marshal(positions{LockPos: lockPos, UnlockPos: unlockPos})
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write positions file: %w", err)
	}
	debug.Verbose("Saved positions: lock_pos=%d, unlock_pos=%d", lockPos, unlockPos)
	return nil
}

// Load reads both calibrated positions. A missing file is not an
// error: it means the device was never calibrated, so (0, 0) is returned.
func (s *FileStore) Load() (int, int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			debug.Info("No positions file at %s, starting uncalibrated", s.path)
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("read positions file: %w", err)
	}

	var p positions
	if err := yaml.Unmarshal(data, &p); err != nil {
		return 0, 0, fmt.Errorf("unmarshal positions file: %w", err)
	}
	debug.Info("Loaded positions: lock_pos=%d, unlock_pos=%d", p.LockPos, p.UnlockPos)
	return p.LockPos, p.UnlockPos, nil
}

// MemStore keeps positions in memory only. Used for development and tests.
type MemStore struct {
	LockPos   int
	UnlockPos int
}

func (s *MemStore) Save(lockPos, unlockPos int) error {
	s.LockPos = lockPos
	s.UnlockPos = unlockPos
	return nil
}

func (s *MemStore) Load() (int, int, error) {
	return s.LockPos, s.UnlockPos, nil
}
