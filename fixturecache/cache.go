package fixturecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/bitrise-io/go-utils/v2/log"
	"golang.org/x/sync/singleflight"
)

// ErrNoValue is returned when a producer finished without yielding a value.
var ErrNoValue = errors.New("fixture producer yielded no value")

// SerializationError is returned when a fixture value can not be converted to or from its stored form.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("fixture (%s) serialization failed: %s", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// Cache memoizes fixture values in a Store for the lifetime of a session.
type Cache struct {
	store  Store
	logger log.Logger
	group  singleflight.Group
}

// New ...
func New(store Store, logger log.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger,
	}
}

// Invalidate drops the entry stored under key, the next GetOrCompute produces it again.
func (c *Cache) Invalidate(key string) error {
	c.logger.Debugf("Invalidating cached fixture: %s", key)
	return c.store.Delete(key)
}

// GetOrCompute returns the value stored under key. On a miss it takes the first value yielded by produce,
// stores it and returns a copy decoded from the stored form, so hits and misses look the same to the caller.
// The iteration is stopped right after the first value, which lets the producer run its cleanup.
// A producer error is returned as is and nothing is stored.
// Concurrent calls for the same key share one production.
func GetOrCompute[T any](c *Cache, key string, produce iter.Seq2[T, error]) (T, error) {
	var zero T

	stored, err, _ := c.group.Do(key, func() (interface{}, error) {
		stored, ok, err := c.store.Get(key)
		if err != nil {
			return nil, err
		}
		if ok {
			c.logger.Debugf("Fixture cache hit: %s", key)
			return stored, nil
		}

		c.logger.Debugf("Fixture cache miss: %s", key)

		value, err := first(produce)
		if err != nil {
			return nil, err
		}

		stored, err = json.Marshal(value)
		if err != nil {
			return nil, &SerializationError{Key: key, Err: err}
		}

		if err := c.store.Set(key, stored); err != nil {
			return nil, err
		}
		return stored, nil
	})
	if err != nil {
		return zero, err
	}

	var value T
	if err := json.Unmarshal(stored.([]byte), &value); err != nil {
		return zero, &SerializationError{Key: key, Err: err}
	}
	return value, nil
}

func first[T any](seq iter.Seq2[T, error]) (T, error) {
	for value, err := range seq {
		return value, err
	}

	var zero T
	return zero, ErrNoValue
}

// Single adapts a plain constructor to a producer.
func Single[T any](fn func() (T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		yield(fn())
	}
}
