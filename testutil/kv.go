package testutil

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/c360/sonto/errors"
)

// MockKVStore is an in-memory key-value store with the same Put/Get shape
// as natsclient.KVStore. FailPuts makes the next n Put calls fail.
type MockKVStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	revision uint64
	failPuts int
	puts     int
}

// NewMockKVStore creates a new mock KV store
func NewMockKVStore() *MockKVStore {
	return &MockKVStore{data: make(map[string][]byte)}
}

// Put stores a copy of value under key
func (kv *MockKVStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	kv.mu.Lock()
	defer kv.mu.Unlock()

	kv.puts++
	if kv.failPuts > 0 {
		kv.failPuts--
		return 0, errors.WrapTransient(errors.ErrStorageUnavailable, "MockKVStore", "Put", "put "+key)
	}

	kv.revision++
	kv.data[key] = append([]byte(nil), value...)
	return kv.revision, nil
}

// Get returns a copy of the value stored under key
func (kv *MockKVStore) Get(key string) ([]byte, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	value, ok := kv.data[key]
	if !ok {
		return nil, errors.ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

// Keys returns the stored keys in sorted order
func (kv *MockKVStore) Keys() []string {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	keys := make([]string, 0, len(kv.data))
	for k := range kv.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FailPuts makes the next n Put calls return a transient error
func (kv *MockKVStore) FailPuts(n int) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.failPuts = n
}

// PutCount returns the number of Put calls, failed ones included
func (kv *MockKVStore) PutCount() int {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	return kv.puts
}

// WaitForPuts fails the test unless at least n Put calls happen within timeout
func WaitForPuts(t *testing.T, kv *MockKVStore, n int, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if kv.PutCount() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d KV puts, got %d", n, kv.PutCount())
}
