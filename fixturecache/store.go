package fixturecache

import (
	"fmt"
	"sync"

	"github.com/bitrise-io/go-utils/v2/log"
)

// Store persists serialized fixture values by key.
// A Store is opened at the start of a session and closed at its end.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// StoreKind selects the Store implementation.
type StoreKind string

const (
	MemoryStoreKind StoreKind = "memory"
	FileStoreKind   StoreKind = "file"
	BadgerStoreKind StoreKind = "badger"
)

// OpenStore opens the Store of the given kind rooted at dir.
func OpenStore(kind StoreKind, dir string, logger log.Logger) (Store, error) {
	switch kind {
	case MemoryStoreKind:
		return NewMemoryStore(), nil
	case FileStoreKind:
		return NewFileStore(dir, logger)
	case BadgerStoreKind:
		return OpenBadgerStore(dir)
	default:
		return nil, fmt.Errorf("unknown cache store: %s", kind)
	}
}

type memoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore returns an isolated, process local Store.
func NewMemoryStore() Store {
	return &memoryStore{entries: map[string][]byte{}}
}

func (s *memoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *memoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = append([]byte(nil), value...)
	return nil
}

func (s *memoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}
