// Package service runs the ontology engine as a long-lived NATS service.
//
// BaseService carries the lifecycle shared by services: Start/Stop with a
// bounded shutdown, periodic health checks, activity counters and the
// service status gauge. OntologyService embeds it and answers three
// request/reply subjects under a configurable prefix (default "sonto"):
//
//	<prefix>.isa          {"child":"mRNA","parent":"transcript"} -> {"result":true}
//	<prefix>.resolve      {"term":"CDS"} -> {"found":true,"id":"SO:0000316",...}
//	<prefix>.diagnostics  -> {"instance_id":"...","found":[...],"not_found":[...]}
//
// Handler failures are answered with {"error":"..."}. When a snapshot store
// is configured the diagnostics are also written to it under the instance
// ID on every SnapshotInterval tick and once more on shutdown.
//
// Usage:
//
//	svc, err := service.NewOntologyService(engine, natsClient, kvStore, service.Config{
//	    SnapshotInterval: 30 * time.Second,
//	}, service.WithMetrics(registry), service.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := svc.Start(ctx); err != nil {
//	    return err
//	}
//	defer svc.Stop(10 * time.Second)
package service
