package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/sonto/config"
	"github.com/c360/sonto/health"
	"github.com/c360/sonto/metric"
	"github.com/c360/sonto/natsclient"
	"github.com/c360/sonto/ontology"
	"github.com/c360/sonto/pkg/retry"
	"github.com/c360/sonto/service"
)

// Components reported on /health
const (
	componentOntology = "ontology"
	componentNATS     = "nats"
	componentService  = service.OntologyServiceName
)

// runServe loads the engine, exposes metrics and health, and serves queries
// over NATS until SIGINT or SIGTERM.
func runServe(ctx context.Context, cfg *config.Config, shutdownTimeout time.Duration, logger *slog.Logger) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	registry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()

	engine, err := loadEngine(signalCtx, cfg, logger, ontology.WithMetrics(registry))
	if err != nil {
		return err
	}
	stats := engine.Stats()
	monitor.Update(componentOntology, health.NewHealthy(componentOntology,
		fmt.Sprintf("%d terms, %d edges loaded", stats.Terms, stats.Edges)))
	logger.Info("Ontology loaded",
		"source", cfg.Ontology.Source,
		"terms", stats.Terms,
		"edges", stats.Edges,
		"dangling_edges", stats.DanglingEdges)

	var running atomic.Pointer[service.OntologyService]
	check := func() health.Status {
		if svc := running.Load(); svc != nil {
			monitor.Update(componentService, svc.Health())
		}
		return monitor.AggregateHealth(appName)
	}

	if cfg.Metrics.Enabled {
		server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry, check)
		if err := server.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		logger.Info("Metrics server started", "address", server.Address())
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Stop(stopCtx); err != nil {
				logger.Warn("Metrics server shutdown failed", "error", err)
			}
		}()
	}

	if !cfg.Service.Enabled {
		logger.Info("NATS service disabled, serving metrics and health only")
		<-signalCtx.Done()
		logger.Info("Received shutdown signal")
		return nil
	}

	natsClient, err := connectNATS(signalCtx, cfg, registry, monitor, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := natsClient.Close(closeCtx); err != nil {
			logger.Warn("NATS close incomplete", "error", err)
		}
	}()

	store, err := snapshotStore(signalCtx, cfg, natsClient)
	if err != nil {
		return err
	}

	svc, err := service.NewOntologyService(engine, natsClient, store, service.Config{
		SubjectPrefix:    cfg.Service.SubjectPrefix,
		SnapshotInterval: cfg.Service.SnapshotInterval,
		InstanceID:       cfg.Service.InstanceID,
	},
		service.WithMetrics(registry),
		service.WithLogger(logger),
		service.WithHealthCheck(func() error {
			if !natsClient.IsHealthy() {
				return natsclient.ErrNotConnected
			}
			return nil
		}),
		service.OnHealthChange(func(healthy bool) {
			logger.Info("Ontology service health changed", "healthy", healthy)
		}),
	)
	if err != nil {
		return fmt.Errorf("create ontology service: %w", err)
	}

	if err := svc.Start(signalCtx); err != nil {
		return fmt.Errorf("start ontology service: %w", err)
	}
	running.Store(svc)
	logger.Info("sonto started", "instance", svc.InstanceID())

	<-signalCtx.Done()
	logger.Info("Received shutdown signal")

	if err := svc.Stop(shutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("sonto shutdown complete")
	return nil
}

// connectNATS creates the client and connects with startup retries
func connectNATS(
	ctx context.Context,
	cfg *config.Config,
	registry *metric.MetricsRegistry,
	monitor *health.Monitor,
	logger *slog.Logger,
) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(registry),
		natsclient.WithName(appName + "-" + Version),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithQueueGroup(cfg.Service.SubjectPrefix),
		natsclient.WithHealthChangeCallback(func(healthy bool) {
			if healthy {
				monitor.Update(componentNATS, health.NewHealthy(componentNATS, "connected"))
			} else {
				monitor.Update(componentNATS, health.NewDegraded(componentNATS, "reconnecting"))
			}
		}),
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.ConnectTimeout > 0 {
		opts = append(opts, natsclient.WithTimeout(cfg.NATS.ConnectTimeout))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	url := strings.Join(cfg.NATS.URLs, ",")
	client, err := natsclient.NewClient(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	logger.Info("Connecting to NATS", "urls", cfg.NATS.URLs)
	monitor.Update(componentNATS, health.NewDegraded(componentNATS, "connecting"))

	err = retry.Do(ctx, retry.Quick(), func() error {
		return client.Connect(ctx)
	})
	if err != nil {
		monitor.Update(componentNATS, health.FromError(componentNATS, err, ""))
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	monitor.Update(componentNATS, health.NewHealthy(componentNATS, "connected"))
	return client, nil
}

// snapshotStore opens the diagnostics bucket, or returns nil when snapshot
// publication is disabled.
func snapshotStore(ctx context.Context, cfg *config.Config, client *natsclient.Client) (service.SnapshotStore, error) {
	if cfg.Service.SnapshotInterval <= 0 {
		return nil, nil
	}

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Service.Bucket,
		Description: "sonto query diagnostics by instance",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("open diagnostics bucket %s: %w", cfg.Service.Bucket, err)
	}
	return client.NewKVStore(bucket), nil
}
