package fixturecache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
)

type badgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens a badger backed Store in dir, an empty dir opens an in-memory database.
func OpenBadgerStore(dir string) (Store, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir).WithSyncWrites(true).WithTruncate(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache store: %w", err)
	}

	return &badgerStore{db: db}, nil
}

func (s *badgerStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry (%s): %w", key, err)
	}
	return value, true, nil
}

func (s *badgerStore) Set(key string, value []byte) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	}); err != nil {
		return fmt.Errorf("failed to store cache entry (%s): %w", key, err)
	}
	return nil
}

func (s *badgerStore) Delete(key string) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("failed to delete cache entry (%s): %w", key, err)
	}
	return nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
