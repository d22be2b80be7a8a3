package fixturecache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/gofrs/flock"
)

const (
	lockFileName   = ".lock"
	entryExtension = ".json"

	lockAttempts = 10
	lockWait     = 3 * time.Second
)

type fileStore struct {
	dir    string
	lock   *flock.Flock
	logger log.Logger
}

// NewFileStore returns a Store keeping one file per key in dir.
// The directory is locked exclusively until Close, so two sessions never share a file store.
func NewFileStore(dir string, logger log.Logger) (Store, error) {
	if dir == "" {
		return nil, errors.New("file cache store requires a directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	if err := retry.Times(lockAttempts).Wait(lockWait).Try(func(attempt uint) error {
		if attempt > 0 {
			logger.Warnf("Cache dir (%s) is locked by another session, retrying...", dir)
		}

		locked, err := lock.TryLock()
		if err != nil {
			return err
		}
		if !locked {
			return fmt.Errorf("cache dir is locked: %s", dir)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to lock cache dir: %w", err)
	}

	logger.Debugf("Cache dir locked: %s", dir)

	return &fileStore{
		dir:    dir,
		lock:   lock,
		logger: logger,
	}, nil
}

func (s *fileStore) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+entryExtension)
}

func (s *fileStore) Get(key string) ([]byte, bool, error) {
	value, err := os.ReadFile(s.entryPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry (%s): %w", key, err)
	}
	return value, true, nil
}

// Set writes the entry to a temporary file first, a crash never leaves a truncated entry behind.
func (s *fileStore) Set(key string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, "entry-*")
	if err != nil {
		return fmt.Errorf("failed to create cache entry (%s): %w", key, err)
	}

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry (%s): %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry (%s): %w", key, err)
	}

	if err := os.Rename(tmp.Name(), s.entryPath(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to store cache entry (%s): %w", key, err)
	}
	return nil
}

func (s *fileStore) Delete(key string) error {
	if err := os.Remove(s.entryPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cache entry (%s): %w", key, err)
	}
	return nil
}

func (s *fileStore) Close() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock cache dir: %w", err)
	}
	s.logger.Debugf("Cache dir unlocked: %s", s.dir)
	return nil
}
