package cache

import (
	"github.com/c360/sonto/errors"
)

// Cache represents a generic grow-only cache keyed by string.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found, zero value and false otherwise.
	Get(key string) (V, bool)

	// Peek retrieves a value like Get without counting a hit or miss.
	Peek(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry was created, false if updated.
	// Returns an error if the key is empty.
	Set(key string, value V) (bool, error)

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns a slice of all keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics.
	Stats() *Statistics
}

// New creates a grow-only cache.
// Returns an error if metrics registration fails when requested.
func New[V any](options ...Option) (Cache[V], error) {
	return newSimpleCache[V](applyOptions(options...))
}

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
