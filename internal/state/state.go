// Package state persists the single "last successful sync" timestamp and
// derives the trigger gate automatic runs consult before doing work.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// GateInterval is the minimum elapsed time since the last successful sync
// before an automatic trigger runs again.
const GateInterval = 12 * time.Hour

// Store persists the last successful sync time as one decimal epoch-seconds
// integer in a plain file.
type Store struct {
	path string
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted timestamp. ok is false when no state exists
// yet; a corrupt file is an error, not an absent state.
func (s *Store) Load() (t time.Time, ok bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("read state file: %w", err)
	}

	secs, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse state file %s: %w", s.path, err)
	}

	return time.Unix(secs, 0), true, nil
}

// Save persists t, keeping the stored value monotonically non-decreasing:
// an earlier timestamp than the one on disk is ignored.
func (s *Store) Save(t time.Time) error {
	prev, ok, err := s.Load()
	if err != nil {
		return err
	}
	if ok && t.Before(prev) {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	data := strconv.FormatInt(t.Unix(), 10) + "\n"
	if err := os.WriteFile(s.path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// Gate reports whether an automatic trigger should run at now: true when no
// state exists or at least GateInterval has elapsed since the last success.
// The boundary is inclusive: exactly GateInterval elapsed opens the gate.
func (s *Store) Gate(now time.Time) (bool, error) {
	last, ok, err := s.Load()
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return now.Sub(last) >= GateInterval, nil
}
