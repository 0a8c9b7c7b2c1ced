package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/sonto/health"
	"github.com/c360/sonto/metric"
)

// Status represents the current status of a service
type Status int

// Possible service statuses
const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Info holds runtime information for a service
type Info struct {
	Name               string        `json:"name"`
	Status             Status        `json:"status"`
	Uptime             time.Duration `json:"uptime"`
	StartTime          time.Time     `json:"start_time"`
	MessagesProcessed  int64         `json:"messages_processed"`
	LastActivity       time.Time     `json:"last_activity"`
	HealthChecks       int64         `json:"health_checks"`
	FailedHealthChecks int64         `json:"failed_health_checks"`
}

// HealthCheckFunc defines a custom health check function
type HealthCheckFunc func() error

// Option is a functional option for configuring BaseService
type Option func(*BaseService)

// BaseService carries the lifecycle, health monitoring and status metrics
// shared by sonto services. Concrete services embed it.
type BaseService struct {
	name            string
	metricsRegistry *metric.MetricsRegistry
	logger          *slog.Logger

	status    atomic.Value // Status
	startTime atomic.Value // time.Time
	healthy   atomic.Bool
	lastError atomic.Value // string

	messagesProcessed  atomic.Int64
	healthChecks       atomic.Int64
	failedHealthChecks atomic.Int64
	lastActivity       atomic.Value // time.Time

	healthCheckFunc HealthCheckFunc
	healthTicker    *time.Ticker
	healthInterval  time.Duration
	onHealthChange  func(bool)

	done      chan struct{}
	waitGroup sync.WaitGroup
	mu        sync.RWMutex
}

// NewBaseService creates a stopped service named name
func NewBaseService(name string, opts ...Option) *BaseService {
	s := &BaseService{
		name:           name,
		healthInterval: 30 * time.Second,
		logger:         slog.Default().With("service", name),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.startTime.Store(time.Time{})
	s.lastActivity.Store(time.Time{})
	s.lastError.Store("")
	s.setStatus(StatusStopped)

	return s
}

// WithMetrics sets the metrics registry for the service
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *BaseService) {
		s.metricsRegistry = registry
	}
}

// WithLogger sets a custom logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *BaseService) {
		if logger != nil {
			s.logger = logger.With("service", s.name)
		}
	}
}

// WithHealthCheck sets a custom health check function
func WithHealthCheck(fn HealthCheckFunc) Option {
	return func(s *BaseService) {
		s.healthCheckFunc = fn
	}
}

// WithHealthInterval sets the health check interval. Zero disables the
// periodic check; the first check still runs on Start.
func WithHealthInterval(interval time.Duration) Option {
	return func(s *BaseService) {
		s.healthInterval = interval
	}
}

// OnHealthChange sets a callback for health state changes
func OnHealthChange(fn func(bool)) Option {
	return func(s *BaseService) {
		s.onHealthChange = fn
	}
}

// Name returns the service name
func (s *BaseService) Name() string {
	return s.name
}

// Logger returns the service logger
func (s *BaseService) Logger() *slog.Logger {
	return s.logger
}

// Status returns the current service status
func (s *BaseService) Status() Status {
	return s.status.Load().(Status)
}

func (s *BaseService) setStatus(status Status) {
	s.status.Store(status)
	if s.metricsRegistry != nil {
		s.metricsRegistry.CoreMetrics().RecordServiceStatus(s.name, int(status))
	}
}

// coreMetrics returns the shared metrics, or nil when none are configured
func (s *BaseService) coreMetrics() *metric.Metrics {
	if s.metricsRegistry == nil {
		return nil
	}
	return s.metricsRegistry.CoreMetrics()
}

// IsHealthy returns whether the last health check passed
func (s *BaseService) IsHealthy() bool {
	return s.healthy.Load()
}

// Health reports the service state in the shared health format
func (s *BaseService) Health() health.Status {
	info := s.GetStatus()
	metrics := &health.Metrics{
		Uptime:            info.Uptime,
		ErrorCount:        int(info.FailedHealthChecks),
		MessagesProcessed: info.MessagesProcessed,
		LastActivity:      info.LastActivity,
	}

	if !s.healthy.Load() && info.Status == StatusRunning {
		msg := s.lastError.Load().(string)
		if msg == "" {
			msg = fmt.Sprintf("health check failed (failed checks: %d)", info.FailedHealthChecks)
		}
		return health.FromError(s.name, fmt.Errorf("%s", msg), "").WithMetrics(metrics)
	}

	var status health.Status
	switch info.Status {
	case StatusRunning:
		status = health.NewHealthy(s.name, "Service operating normally")
	case StatusStarting:
		status = health.NewDegraded(s.name, "Service is starting")
	case StatusStopping:
		status = health.NewDegraded(s.name, "Service is stopping")
	default:
		status = health.NewUnhealthy(s.name, "Service is stopped")
	}
	return status.WithMetrics(metrics)
}

// Start moves the service to running and starts health monitoring. The
// service stops on its own when ctx is cancelled.
func (s *BaseService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.Status(); current == StatusRunning || current == StatusStarting {
		return nil
	}

	s.setStatus(StatusStarting)
	s.done = make(chan struct{})

	now := time.Now()
	s.startTime.Store(now)
	s.lastActivity.Store(now)

	s.setStatus(StatusRunning)
	s.performHealthCheck()

	if s.healthInterval > 0 {
		s.healthTicker = time.NewTicker(s.healthInterval)
		s.waitGroup.Add(1)
		go s.healthMonitor(s.healthTicker, s.done)
	}

	s.waitGroup.Add(1)
	go s.contextMonitor(ctx, s.done)

	s.logger.Info("Service started")
	return nil
}

// Stop stops the service, waiting up to timeout for its goroutines
func (s *BaseService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(timeout)
}

func (s *BaseService) stopLocked(timeout time.Duration) error {
	if current := s.Status(); current == StatusStopped || current == StatusStopping {
		return nil
	}

	s.setStatus(StatusStopping)
	s.closeDone()

	if s.healthTicker != nil {
		s.healthTicker.Stop()
	}

	if timeout == 0 {
		timeout = 5 * time.Second
	}

	finished := make(chan struct{})
	go func() {
		s.waitGroup.Wait()
		close(finished)
	}()

	var err error
	select {
	case <-finished:
	case <-time.After(timeout):
		err = fmt.Errorf("service %s: goroutines still running after %v", s.name, timeout)
		s.logger.Warn("Stop timed out", "timeout", timeout)
	}

	s.healthy.Store(false)
	s.setStatus(StatusStopped)
	s.logger.Info("Service stopped")
	return err
}

func (s *BaseService) closeDone() {
	if s.done == nil {
		return
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// Done is closed when the service begins stopping
func (s *BaseService) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// Go runs fn as a service goroutine that Stop waits for. fn must return
// once done is closed.
func (s *BaseService) Go(fn func(done <-chan struct{})) {
	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()

	s.waitGroup.Add(1)
	go func() {
		defer s.waitGroup.Done()
		fn(done)
	}()
}

// RecordActivity counts one processed message
func (s *BaseService) RecordActivity() {
	s.messagesProcessed.Add(1)
	s.lastActivity.Store(time.Now())
}

// GetStatus returns the current service information
func (s *BaseService) GetStatus() Info {
	startTime := s.startTime.Load().(time.Time)
	status := s.Status()

	var uptime time.Duration
	if !startTime.IsZero() && status == StatusRunning {
		uptime = time.Since(startTime)
	}

	return Info{
		Name:               s.name,
		Status:             status,
		Uptime:             uptime,
		StartTime:          startTime,
		MessagesProcessed:  s.messagesProcessed.Load(),
		LastActivity:       s.lastActivity.Load().(time.Time),
		HealthChecks:       s.healthChecks.Load(),
		FailedHealthChecks: s.failedHealthChecks.Load(),
	}
}

func (s *BaseService) healthMonitor(ticker *time.Ticker, done <-chan struct{}) {
	defer s.waitGroup.Done()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.performHealthCheck()
		}
	}
}

func (s *BaseService) performHealthCheck() {
	s.healthChecks.Add(1)

	var err error
	if s.healthCheckFunc != nil {
		err = s.healthCheckFunc()
	}

	wasHealthy := s.healthy.Load()
	isHealthy := err == nil

	if err != nil {
		s.failedHealthChecks.Add(1)
		s.lastError.Store(err.Error())
	} else {
		s.lastError.Store("")
	}
	s.healthy.Store(isHealthy)

	if wasHealthy != isHealthy {
		if isHealthy {
			s.logger.Info("Service healthy")
		} else {
			s.logger.Warn("Service unhealthy", "error", err)
		}
		if s.onHealthChange != nil {
			go s.onHealthChange(isHealthy)
		}
	}
}

// contextMonitor stops the service when the parent context is cancelled
func (s *BaseService) contextMonitor(ctx context.Context, done <-chan struct{}) {
	select {
	case <-ctx.Done():
		// Stop waits on this goroutine, so release it first.
		s.waitGroup.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.stopLocked(0); err != nil {
			s.logger.Warn("Shutdown after context cancellation incomplete", "error", err)
		}
	case <-done:
		s.waitGroup.Done()
	}
}

// Service is the contract the binary uses to run services
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
	Status() Status
	IsHealthy() bool
	GetStatus() Info
	Health() health.Status
}
