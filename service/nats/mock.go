package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu                    sync.RWMutex
	publishedTransactions []*TransactionEvent
	publishedRescues      []*RescueEvent
	publishError          error
	closed                bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedTransactions: make([]*TransactionEvent, 0),
		publishedRescues:      make([]*RescueEvent, 0),
	}
}

// PublishTransaction records the event and returns any configured error.
func (m *MockPublisher) PublishTransaction(ctx context.Context, event *TransactionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedTransactions = append(m.publishedTransactions, event)
	return nil
}

// PublishRescue records the event and returns any configured error.
func (m *MockPublisher) PublishRescue(ctx context.Context, event *RescueEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedRescues = append(m.publishedRescues, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedTransactions returns all published transaction events (for testing).
func (m *MockPublisher) GetPublishedTransactions() []*TransactionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid race conditions
	events := make([]*TransactionEvent, len(m.publishedTransactions))
	copy(events, m.publishedTransactions)
	return events
}

// GetPublishedRescues returns all published rescue events (for testing).
func (m *MockPublisher) GetPublishedRescues() []*RescueEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*RescueEvent, len(m.publishedRescues))
	copy(events, m.publishedRescues)
	return events
}

// SetPublishError configures the mock to return an error on publish.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// Reset clears all published events and errors.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedTransactions = make([]*TransactionEvent, 0)
	m.publishedRescues = make([]*RescueEvent, 0)
	m.publishError = nil
	m.closed = false
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
