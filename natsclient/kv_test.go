package natsclient

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sonto/errors"
)

func kvConfig(name string) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{Bucket: name, History: 1}
}

type fakeEntry struct {
	jetstream.KeyValueEntry
	key      string
	value    []byte
	revision uint64
}

func (e fakeEntry) Key() string      { return e.key }
func (e fakeEntry) Value() []byte    { return e.value }
func (e fakeEntry) Revision() uint64 { return e.revision }

// fakeBucket is an in-memory KVBucket whose Put fails failPuts times first.
type fakeBucket struct {
	mu       sync.Mutex
	data     map[string]fakeEntry
	rev      uint64
	failPuts int
	putCalls int
	getErr   error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{data: make(map[string]fakeEntry)}
}

func (b *fakeBucket) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	e, ok := b.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return e, nil
}

func (b *fakeBucket) Put(_ context.Context, key string, value []byte) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.putCalls++
	if b.failPuts > 0 {
		b.failPuts--
		return 0, stderrors.New("nats: timeout")
	}
	b.rev++
	b.data[key] = fakeEntry{key: key, value: append([]byte(nil), value...), revision: b.rev}
	return b.rev, nil
}

func (b *fakeBucket) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.data[key]; !ok {
		return jetstream.ErrKeyNotFound
	}
	delete(b.data, key)
	return nil
}

func newTestKVStore(t *testing.T, bucket KVBucket, opts ...func(*KVOptions)) *KVStore {
	t.Helper()
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	fast := func(o *KVOptions) {
		o.RetryDelay = time.Millisecond
		o.MaxRetryDelay = 2 * time.Millisecond
	}
	return client.NewKVStore(bucket, append([]func(*KVOptions){fast}, opts...)...)
}

func TestKVStore_PutGetDelete(t *testing.T) {
	bucket := newFakeBucket()
	kv := newTestKVStore(t, bucket)
	ctx := context.Background()

	rev, err := kv.Put(ctx, "instance-1", []byte(`{"found":["exon"]}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)

	entry, err := kv.Get(ctx, "instance-1")
	require.NoError(t, err)
	assert.Equal(t, "instance-1", entry.Key)
	assert.JSONEq(t, `{"found":["exon"]}`, string(entry.Value))
	assert.Equal(t, uint64(1), entry.Revision)

	rev, err = kv.Put(ctx, "instance-1", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rev, "last writer wins")

	require.NoError(t, kv.Delete(ctx, "instance-1"))
	_, err = kv.Get(ctx, "instance-1")
	require.Error(t, err)
	assert.True(t, IsKVNotFoundError(err))
	assert.True(t, errors.IsInvalid(err))
}

func TestKVStore_PutRetriesTransientFailures(t *testing.T) {
	bucket := newFakeBucket()
	bucket.failPuts = 2
	kv := newTestKVStore(t, bucket)

	rev, err := kv.Put(context.Background(), "k", []byte("v"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)
	assert.Equal(t, 3, bucket.putCalls)
}

func TestKVStore_PutGivesUp(t *testing.T) {
	bucket := newFakeBucket()
	bucket.failPuts = 10
	kv := newTestKVStore(t, bucket, func(o *KVOptions) { o.MaxRetries = 2 })

	_, err := kv.Put(context.Background(), "k", []byte("v"))
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, 3, bucket.putCalls)
}

func TestKVStore_PutRejectsOversizedValue(t *testing.T) {
	bucket := newFakeBucket()
	kv := newTestKVStore(t, bucket, func(o *KVOptions) { o.MaxValueSize = 4 })

	_, err := kv.Put(context.Background(), "k", []byte("too large"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.ErrorIs(t, err, errors.ErrInvalidData)
	assert.Zero(t, bucket.putCalls)
}

func TestKVStore_GetTransientError(t *testing.T) {
	bucket := newFakeBucket()
	bucket.getErr = stderrors.New("nats: connection closed")
	kv := newTestKVStore(t, bucket)

	_, err := kv.Get(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.False(t, IsKVNotFoundError(err))
}

func TestKVStore_DeleteMissing(t *testing.T) {
	kv := newTestKVStore(t, newFakeBucket())
	err := kv.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsKVNotFoundError(err))
}

func TestIsKVNotFoundError(t *testing.T) {
	assert.False(t, IsKVNotFoundError(nil))
	assert.True(t, IsKVNotFoundError(jetstream.ErrKeyNotFound))
	assert.True(t, IsKVNotFoundError(errors.ErrKeyNotFound))
	assert.True(t, IsKVNotFoundError(stderrors.New("nats: error code 10037")))
	assert.False(t, IsKVNotFoundError(stderrors.New("nats: timeout")))
}
