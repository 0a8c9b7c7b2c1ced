// Package natsclient wraps nats.go with a circuit breaker, request/reply
// helpers and a small JetStream KV store.
//
// # Connection lifecycle
//
// A Client moves through Disconnected, Connecting, Connected and Reconnecting.
// After a run of consecutive failures (five by default) the circuit opens and
// Connect fails fast with ErrCircuitOpen until the backoff expires. The backoff
// doubles each round up to WithMaxBackoff.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithLogger(logger),
//		natsclient.WithQueueGroup("sonto"),
//	)
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(ctx)
//
// # Request/reply
//
// Reply registers a handler whose return value is sent back to the requester.
// A handler error is answered with a JSON body of the form {"error": "..."}.
//
//	err = client.Reply(ctx, "sonto.isa", func(ctx context.Context, data []byte) ([]byte, error) {
//		return handle(data)
//	})
//
// # Key-value
//
// CreateKeyValueBucket returns an existing bucket or creates it, tolerating a
// creation race with other instances. NewKVStore wraps a bucket with
// per-operation timeouts and retried writes:
//
//	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "SONTO_DIAGNOSTICS"})
//	kv := client.NewKVStore(bucket)
//	rev, err := kv.Put(ctx, instanceID, snapshot)
//
// # Testing
//
// NewTestClient starts a nats container through testcontainers-go and returns
// a connected Client. Tests that use it carry the integration build tag.
package natsclient
