// Package errors provides standardized error handling patterns for sonto.
//
// # Error Classification
//
// Errors fall into three classes:
//
//   - Transient: NATS timeouts, lost connections, KV unavailability (retry recommended)
//   - Invalid: malformed OBO input, duplicate term ids, bad configuration values (do not retry)
//   - Fatal: missing ontology resource, corrupted archive, missing configuration (stop)
//
// The classification works with errors.Is and errors.As through wrapping chains.
//
// # Wrapping Pattern
//
// All wrapping follows one format:
//
//	component.method: action failed: underlying error
//
// For example:
//
//	return errors.WrapFatal(err, "Loader", "Load", "open ontology archive")
//
// # Query Path
//
// Ontology queries never return errors. An unresolved term is an expected
// outcome and is reported as false plus a diagnostics entry; only engine
// construction surfaces errors from this package.
package errors
