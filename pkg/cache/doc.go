// Package cache provides a generic, thread-safe grow-only cache with
// always-on statistics and optional Prometheus export.
//
// Entries are never evicted: the cache holds derived data whose total size
// is bounded by an immutable source, such as per-term ancestor closures over
// a loaded ontology. There is no Delete or Clear.
//
// Usage:
//
//	closures, err := cache.New[*ancestorSet](cache.WithMetrics(registry, "closure"))
//	if err != nil {
//	    return err
//	}
//	if set, ok := closures.Get(term.ID); ok {
//	    ...
//	}
package cache
