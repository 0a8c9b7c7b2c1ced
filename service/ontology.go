package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/sonto/errors"
	"github.com/c360/sonto/natsclient"
	"github.com/c360/sonto/ontology"
)

// OntologyServiceName is the name the query service registers under
const OntologyServiceName = "ontology-service"

const snapshotTimeout = 5 * time.Second

// Transport registers request/reply handlers. *natsclient.Client satisfies it.
type Transport interface {
	Reply(ctx context.Context, subject string, handler natsclient.ReplyHandler) error
}

// SnapshotStore persists diagnostics snapshots. *natsclient.KVStore
// satisfies it.
type SnapshotStore interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

var (
	_ Transport     = (*natsclient.Client)(nil)
	_ SnapshotStore = (*natsclient.KVStore)(nil)
)

// Config configures an OntologyService
type Config struct {
	// SubjectPrefix is prepended to every served subject. Defaults to "sonto".
	SubjectPrefix string
	// SnapshotInterval is how often diagnostics are written to the
	// snapshot store. Zero disables publication.
	SnapshotInterval time.Duration
	// InstanceID keys this instance's snapshot. Generated when empty.
	InstanceID string
}

// DiagnosticsReport is the diagnostics payload served over NATS and stored
// in the snapshot bucket.
type DiagnosticsReport struct {
	InstanceID string `json:"instance_id"`
	ontology.Snapshot
}

// OntologyService answers is-a and resolve queries for an engine over NATS
// request/reply and periodically publishes its query diagnostics.
type OntologyService struct {
	*BaseService

	engine    *ontology.Engine
	transport Transport
	store     SnapshotStore
	config    Config

	// Handlers stay subscribed across restarts; the status gate in
	// instrument rejects requests while stopped.
	regMu      sync.Mutex
	registered map[string]struct{}
}

// NewOntologyService creates a stopped service. store may be nil, which
// disables snapshot publication.
func NewOntologyService(
	engine *ontology.Engine,
	transport Transport,
	store SnapshotStore,
	cfg Config,
	opts ...Option,
) (*OntologyService, error) {
	if engine == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "OntologyService", "New", "engine is required")
	}
	if transport == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "OntologyService", "New", "transport is required")
	}
	if cfg.SnapshotInterval < 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "OntologyService", "New",
			"snapshot interval cannot be negative")
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "sonto"
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	return &OntologyService{
		BaseService: NewBaseService(OntologyServiceName, opts...),
		engine:      engine,
		transport:   transport,
		store:       store,
		config:      cfg,
		registered:  make(map[string]struct{}),
	}, nil
}

// InstanceID returns the key this instance publishes snapshots under
func (s *OntologyService) InstanceID() string {
	return s.config.InstanceID
}

// Subject returns the full subject for a suffix such as SubjectIsA
func (s *OntologyService) Subject(suffix string) string {
	return s.config.SubjectPrefix + "." + suffix
}

// Engine returns the served engine
func (s *OntologyService) Engine() *ontology.Engine {
	return s.engine
}

// Start registers the request handlers and starts snapshot publication
func (s *OntologyService) Start(ctx context.Context) error {
	if s.Status() == StatusRunning {
		return nil
	}
	if err := s.BaseService.Start(ctx); err != nil {
		return err
	}

	if err := s.registerHandlers(ctx); err != nil {
		_ = s.BaseService.Stop(snapshotTimeout)
		return err
	}

	if s.store != nil && s.config.SnapshotInterval > 0 {
		s.Go(s.snapshotLoop)
	}

	s.Logger().Info("Ontology service listening",
		"prefix", s.config.SubjectPrefix,
		"instance", s.config.InstanceID,
		"snapshot_interval", s.config.SnapshotInterval)
	return nil
}

// registerHandlers subscribes each query subject once per service. Handler
// contexts are detached from ctx so a restarted service keeps serving after
// the context of an earlier Start ends.
func (s *OntologyService) registerHandlers(ctx context.Context) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	handlers := map[string]natsclient.ReplyHandler{
		SubjectIsA:         s.handleIsA,
		SubjectResolve:     s.handleResolve,
		SubjectDiagnostics: s.handleDiagnostics,
	}
	handlerCtx := context.WithoutCancel(ctx)
	for _, suffix := range []string{SubjectIsA, SubjectResolve, SubjectDiagnostics} {
		subject := s.Subject(suffix)
		if _, ok := s.registered[subject]; ok {
			continue
		}
		if err := s.transport.Reply(handlerCtx, subject, s.instrument(suffix, handlers[suffix])); err != nil {
			return errors.Wrap(err, "OntologyService", "Start", "register "+subject)
		}
		s.registered[subject] = struct{}{}
	}
	return nil
}

// instrument applies the status gate, activity tracking and request metrics
// shared by every handler.
func (s *OntologyService) instrument(operation string, fn natsclient.ReplyHandler) natsclient.ReplyHandler {
	return func(ctx context.Context, data []byte) ([]byte, error) {
		start := time.Now()

		if s.Status() != StatusRunning {
			return nil, errors.WrapTransient(errors.ErrNotStarted, "OntologyService", operation, "service not running")
		}

		resp, err := fn(ctx, data)
		s.RecordActivity()

		if m := s.coreMetrics(); m != nil {
			m.RecordRequest(s.Name(), operation, time.Since(start))
			if err != nil {
				m.RecordError(s.Name(), errors.Classify(err).String())
			}
		}
		if err != nil {
			s.Logger().Debug("Request failed", "operation", operation, "error", err)
		}
		return resp, err
	}
}

func (s *OntologyService) handleIsA(_ context.Context, data []byte) ([]byte, error) {
	var req IsARequest
	if err := decodeRequest(data, &req, SubjectIsA); err != nil {
		return nil, err
	}
	if req.Child == "" || req.Parent == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "OntologyService", SubjectIsA,
			"child and parent are required")
	}
	return json.Marshal(IsAResponse{Result: s.engine.IsA(req.Child, req.Parent)})
}

func (s *OntologyService) handleResolve(_ context.Context, data []byte) ([]byte, error) {
	var req ResolveRequest
	if err := decodeRequest(data, &req, SubjectResolve); err != nil {
		return nil, err
	}

	term, ok := s.engine.Resolve(req.Term)
	if !ok {
		return json.Marshal(ResolveResponse{Found: false})
	}
	return json.Marshal(newResolveResponse(s.engine.Graph(), term))
}

func (s *OntologyService) handleDiagnostics(context.Context, []byte) ([]byte, error) {
	return json.Marshal(s.report())
}

func (s *OntologyService) report() DiagnosticsReport {
	return DiagnosticsReport{
		InstanceID: s.config.InstanceID,
		Snapshot:   s.engine.Diagnostics().Snapshot(),
	}
}

// snapshotLoop publishes on every tick and once more when the service stops
func (s *OntologyService) snapshotLoop(done <-chan struct{}) {
	ticker := time.NewTicker(s.config.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			s.publishWithTimeout()
			return
		case <-ticker.C:
			s.publishWithTimeout()
		}
	}
}

func (s *OntologyService) publishWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	if err := s.PublishSnapshot(ctx); err != nil {
		s.Logger().Warn("Diagnostics snapshot not published", "error", err)
	}
}

// PublishSnapshot writes the current diagnostics to the snapshot store
// under the instance ID.
func (s *OntologyService) PublishSnapshot(ctx context.Context) error {
	if s.store == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "OntologyService", "PublishSnapshot",
			"no snapshot store configured")
	}

	data, err := json.Marshal(s.report())
	if err != nil {
		return errors.WrapFatal(err, "OntologyService", "PublishSnapshot", "encode snapshot")
	}

	_, err = s.store.Put(ctx, s.config.InstanceID, data)
	if m := s.coreMetrics(); m != nil {
		m.RecordSnapshot(s.Name(), err == nil)
	}
	if err != nil {
		return errors.Wrap(err, "OntologyService", "PublishSnapshot", "put snapshot")
	}
	return nil
}
