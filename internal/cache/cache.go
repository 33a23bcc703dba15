package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

// stagingSuffix marks an artifact that is still being written. Staged files
// are never visible at the derived path, so existence at the derived path is
// always proof of a completed artifact.
const stagingSuffix = ".partial"

// Store manages derived artifacts in a single flat cache directory. The
// filename convention is the cache key: <stable-id>.<audio-ext> for audio,
// <audio-filename>.mid for MIDI.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Path resolves an artifact filename inside the cache directory.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether a completed artifact is present at path.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Stage returns the temporary path an artifact must be written to before it
// can be committed to its final derived path.
func (s *Store) Stage(path string) string {
	return path + stagingSuffix
}

// Commit atomically publishes a staged artifact at its final path. Only a
// successful producer ever calls this, so a crashed or failed run cannot
// leave a half-written file that later runs would trust.
func (s *Store) Commit(staged, path string) error {
	info, err := os.Stat(staged)
	if err != nil {
		return fmt.Errorf("staged artifact missing: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(staged)
		return fmt.Errorf("staged artifact %s is empty", staged)
	}
	if err := os.Rename(staged, path); err != nil {
		return fmt.Errorf("commit artifact: %w", err)
	}
	return nil
}

// Discard removes a staged artifact after a failed run.
func (s *Store) Discard(staged string) {
	_ = os.Remove(staged)
}
