// Package retry provides exponential backoff retry logic for transient failures.
//
// sonto uses it in two places: connecting to NATS at startup (Quick) and
// writing diagnostics snapshots to the KV bucket (DefaultConfig).
//
//	err := retry.Do(ctx, retry.Quick(), func() error {
//	    return client.Connect(ctx)
//	})
//
// Wrap an error with NonRetryable to stop the loop immediately, for example
// when the failure is classified as invalid rather than transient:
//
//	if errors.IsInvalid(err) {
//	    return retry.NonRetryable(err)
//	}
package retry
