// Package sonto answers is-a questions over the Sequence Ontology.
//
// Given two terms, named by description ("mRNA") or canonical ID
// ("SO:0000234"), sonto reports whether the first is the second or one of
// its descendants along is_a edges. Genome annotation tools use this to
// classify features ("is this a kind of CDS?") without walking the
// ontology themselves.
//
// # Architecture
//
// Ontology layer:
//   - ontology: immutable term graph, lazily built ancestor closures,
//     the query facade (Engine) and query diagnostics
//   - ontology/obo: OBO 1.2 parser and loader for plain, gzip and zip
//     sources, plus an embedded core subset
//
// Service layer:
//   - service: BaseService lifecycle and the OntologyService that answers
//     queries over NATS request/reply and snapshots diagnostics to KV
//   - natsclient: NATS connection with circuit breaker, request/reply and
//     JetStream KV access
//
// Infrastructure:
//   - config: layered JSON/YAML configuration with SONTO_* overrides
//   - errors: transient/invalid/fatal error classification
//   - metric: Prometheus registry, core metrics and the /metrics server
//   - health: component health statuses and aggregation
//   - pkg/cache: generic cache backing the closure index
//   - pkg/retry: exponential backoff
//
// # Quick Start
//
// Library use:
//
//	graph, err := obo.Load(ctx, obo.Bundled)
//	if err != nil {
//	    return err
//	}
//	engine, err := ontology.New(graph)
//	if err != nil {
//	    return err
//	}
//	engine.IsA("mRNA", "transcript")        // true
//	engine.IsA("SO:0000234", "sequence_feature") // true
//	engine.NotFoundTerms()                  // identifiers that never resolved
//
// Command line:
//
//	sonto isa mRNA transcript && echo yes
//	sonto --ontology=so-xp-simple.obo.gz terms
//	SONTO_CONFIG=/etc/sonto/config.yaml sonto serve
//
// # Queries
//
// Identical strings are always related, even when neither resolves.
// Unknown terms are never related to anything else. Every child identifier
// a query resolves, or fails to resolve, is recorded in the engine's
// diagnostics; the first outcome recorded for an identifier sticks.
//
// # Testing
//
//	go test ./...                      # unit tests
//	go test -tags=integration ./...    # NATS integration tests (Docker)
package sonto
