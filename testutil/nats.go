package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/c360/sonto/natsclient"
)

// Errors returned by the mocks
var (
	ErrMockClosed       = errors.New("mock client is closed")
	ErrMockNoResponders = errors.New("mock: no responders available for request")
)

// MockNATSClient is an in-memory stand-in for natsclient.Client covering
// publish/subscribe and request/reply. Handlers run synchronously on the
// caller's goroutine. Safe for concurrent use.
type MockNATSClient struct {
	mu            sync.RWMutex
	messages      map[string][][]byte
	subscriptions map[string][]func(context.Context, []byte)
	responders    map[string]natsclient.ReplyHandler
	requests      map[string]int
	closed        bool
}

// NewMockNATSClient creates a new mock NATS client.
func NewMockNATSClient() *MockNATSClient {
	return &MockNATSClient{
		messages:      make(map[string][][]byte),
		subscriptions: make(map[string][]func(context.Context, []byte)),
		responders:    make(map[string]natsclient.ReplyHandler),
		requests:      make(map[string]int),
	}
}

// Publish records data and delivers it to every subscriber of subject.
func (c *MockNATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrMockClosed
	}
	c.messages[subject] = append(c.messages[subject], data)
	handlers := slices.Clone(c.subscriptions[subject])
	c.mu.Unlock()

	for _, handler := range handlers {
		handler(ctx, data)
	}
	return nil
}

// Subscribe registers handler for subject.
func (c *MockNATSClient) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrMockClosed
	}
	c.subscriptions[subject] = append(c.subscriptions[subject], handler)
	return nil
}

// Reply registers the responder for subject, replacing any earlier one.
func (c *MockNATSClient) Reply(ctx context.Context, subject string, handler natsclient.ReplyHandler) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrMockClosed
	}
	c.responders[subject] = handler
	return nil
}

// Request invokes the responder for subject. A responder error is encoded
// as {"error": "..."}, as the real client does.
func (c *MockNATSClient) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrMockClosed
	}
	handler, ok := c.responders[subject]
	c.requests[subject]++
	c.mu.Unlock()

	if !ok {
		return nil, ErrMockNoResponders
	}

	resp, err := handler(ctx, data)
	if err != nil {
		return json.Marshal(map[string]string{"error": err.Error()})
	}
	return resp, nil
}

// HasResponder reports whether a responder is registered for subject.
func (c *MockNATSClient) HasResponder(subject string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.responders[subject]
	return ok
}

// RequestCount returns how many requests were sent to subject.
func (c *MockNATSClient) RequestCount(subject string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requests[subject]
}

// GetMessages returns a copy of everything published to subject.
func (c *MockNATSClient) GetMessages(subject string) [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([][]byte(nil), c.messages[subject]...)
}

// GetMessageCount returns the number of messages published to subject.
func (c *MockNATSClient) GetMessageCount(subject string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages[subject])
}

// Close makes every later call fail with ErrMockClosed.
func (c *MockNATSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (c *MockNATSClient) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// WaitForMessageCount fails the test unless subject has received at least
// count messages within timeout.
func WaitForMessageCount(t *testing.T, client *MockNATSClient, subject string, count int, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if client.GetMessageCount(subject) >= count {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d messages on %s, got %d", count, subject, client.GetMessageCount(subject))
}
