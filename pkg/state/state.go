// Package state persists a small record of the running server instance so
// sibling commands can find it. The record lives in the user cache
// directory and is guarded by a file lock, which keeps concurrent launches
// from interleaving writes.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cast"

	"github.com/glimpse-dev/glimpse/pkg/paths"
)

// ErrNotFound is returned when no instance record exists.
var ErrNotFound = errors.New("no running instance recorded")

const (
	fileName    = "instance.json"
	lockTimeout = time.Second
	lockRetry   = 50 * time.Millisecond
)

// Instance describes a running server.
type Instance struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	URL       string    `json:"url"`
	Dir       string    `json:"dir"`
	StartedAt time.Time `json:"started_at"`
}

// Store reads and writes the instance record.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore returns a Store backed by the user cache directory, creating
// the directory if needed.
func NewStore() (*Store, error) {
	dir, err := paths.CacheDir()
	if err != nil {
		return nil, fmt.Errorf("resolve cache directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return NewStoreAt(filepath.Join(dir, fileName)), nil
}

// NewStoreAt returns a Store backed by an explicit file path.
func NewStoreAt(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the location of the instance record.
func (s *Store) Path() string {
	return s.path
}

// Write records the instance, replacing any previous record.
func (s *Store) Write(ctx context.Context, inst Instance) error {
	if err := s.acquire(ctx, false); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return fmt.Errorf("encode instance state: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write instance state: %w", err)
	}
	return nil
}

// Read returns the recorded instance. Field types are coerced leniently so
// a hand-edited or older record still reads back.
func (s *Store) Read(ctx context.Context) (Instance, error) {
	if err := s.acquire(ctx, true); err != nil {
		return Instance{}, err
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Instance{}, ErrNotFound
		}
		return Instance{}, fmt.Errorf("read instance state: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Instance{}, fmt.Errorf("decode instance state: %w", err)
	}

	inst := Instance{
		PID:  cast.ToInt(raw["pid"]),
		Port: cast.ToInt(raw["port"]),
		URL:  cast.ToString(raw["url"]),
		Dir:  cast.ToString(raw["dir"]),
	}
	if ts := cast.ToString(raw["started_at"]); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			inst.StartedAt = parsed
		}
	}
	return inst, nil
}

// Remove deletes the instance record. Removing a record that does not
// exist is not an error.
func (s *Store) Remove(ctx context.Context) error {
	if err := s.acquire(ctx, false); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove instance state: %w", err)
	}
	return nil
}

func (s *Store) acquire(ctx context.Context, shared bool) error {
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = s.lock.TryRLockContext(lockCtx, lockRetry)
	} else {
		locked, err = s.lock.TryLockContext(lockCtx, lockRetry)
	}
	if err != nil {
		return fmt.Errorf("lock instance state: %w", err)
	}
	if !locked {
		return errors.New("instance state is locked by another process")
	}
	return nil
}
