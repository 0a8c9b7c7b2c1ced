package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/sonto/errors"
	"github.com/c360/sonto/pkg/retry"
)

// KVBucket is the subset of jetstream.KeyValue the KVStore uses
type KVBucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
}

var _ KVBucket = (jetstream.KeyValue)(nil)

// KVEntry wraps a KV entry with its revision
type KVEntry struct {
	Key      string
	Value    []byte
	Revision uint64
}

// KVOptions configures KV operations behavior
type KVOptions struct {
	MaxRetries    int           // Additional Put attempts after the first
	RetryDelay    time.Duration // Initial delay between retries
	MaxRetryDelay time.Duration // Maximum delay between retries
	Timeout       time.Duration // Per-operation timeout, retries included
	MaxValueSize  int           // Zero disables the check
}

// DefaultKVOptions returns the defaults used for diagnostics snapshots
func DefaultKVOptions() KVOptions {
	return KVOptions{
		MaxRetries:    3,
		RetryDelay:    50 * time.Millisecond,
		MaxRetryDelay: time.Second,
		Timeout:       5 * time.Second,
		MaxValueSize:  1024 * 1024,
	}
}

// KVStore provides Get/Put/Delete over a bucket with retrying writes
type KVStore struct {
	bucket  KVBucket
	options KVOptions
	logger  *slog.Logger
	metrics *clientMetrics
}

// NewKVStore creates a new KV store with the given bucket
func (m *Client) NewKVStore(bucket KVBucket, opts ...func(*KVOptions)) *KVStore {
	options := DefaultKVOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &KVStore{
		bucket:  bucket,
		options: options,
		logger:  m.logger,
		metrics: m.metrics,
	}
}

func (kv *KVStore) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if kv.options.Timeout > 0 {
		return context.WithTimeout(ctx, kv.options.Timeout)
	}
	return ctx, func() {}
}

func (kv *KVStore) retryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  kv.options.MaxRetries + 1,
		InitialDelay: kv.options.RetryDelay,
		MaxDelay:     max(kv.options.MaxRetryDelay, kv.options.RetryDelay),
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Get retrieves a value with its revision
func (kv *KVStore) Get(ctx context.Context, key string) (*KVEntry, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	entry, err := kv.bucket.Get(ctx, key)
	if err != nil {
		if IsKVNotFoundError(err) {
			return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "KVStore", "Get", "get "+key)
		}
		kv.metrics.recordKVError("get")
		return nil, errors.WrapTransient(err, "KVStore", "Get", "get "+key)
	}

	return &KVEntry{
		Key:      key,
		Value:    entry.Value(),
		Revision: entry.Revision(),
	}, nil
}

// Put writes key without a revision check (last writer wins), retrying
// transient failures with exponential backoff.
func (kv *KVStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	if kv.options.MaxValueSize > 0 && len(value) > kv.options.MaxValueSize {
		return 0, errors.WrapInvalid(
			fmt.Errorf("%w: size %d exceeds maximum %d", errors.ErrInvalidData, len(value), kv.options.MaxValueSize),
			"KVStore", "Put", "check value size")
	}

	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	attempt := 0
	rev, err := retry.DoWithResult(ctx, kv.retryConfig(), func() (uint64, error) {
		attempt++
		rev, err := kv.bucket.Put(ctx, key, value)
		if err != nil {
			kv.logger.Debug("KV put failed", "key", key, "attempt", attempt, "error", err)
		}
		return rev, err
	})
	if err != nil {
		kv.metrics.recordKVError("put")
		return 0, errors.WrapTransient(err, "KVStore", "Put", "put "+key)
	}

	kv.logger.Debug("KV put", "key", key, "revision", rev, "attempts", attempt)
	return rev, nil
}

// Delete removes a key from the bucket
func (kv *KVStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	if err := kv.bucket.Delete(ctx, key); err != nil {
		if IsKVNotFoundError(err) {
			return errors.WrapInvalid(errors.ErrKeyNotFound, "KVStore", "Delete", "delete "+key)
		}
		kv.metrics.recordKVError("delete")
		return errors.WrapTransient(err, "KVStore", "Delete", "delete "+key)
	}

	return nil
}

// IsKVNotFoundError checks if error indicates key not found
func IsKVNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, errors.ErrKeyNotFound) || stderrors.Is(err, jetstream.ErrKeyNotFound) {
		return true
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "key not found") ||
		strings.Contains(errMsg, "10037")
}
