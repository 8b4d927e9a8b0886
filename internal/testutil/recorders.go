package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/messaging"
	"github.com/cobrodiario/cobrodiario-backend/internal/websocket"
)

// MockObjectRepository keeps uploaded objects in memory
type MockObjectRepository struct {
	mu        sync.Mutex
	Objects   map[string][]byte
	UploadErr error
	DeleteErr error
}

// NewMockObjectRepository creates a new MockObjectRepository
func NewMockObjectRepository() *MockObjectRepository {
	return &MockObjectRepository{Objects: make(map[string][]byte)}
}

// Upload stores the object
func (m *MockObjectRepository) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[objectPath] = content
	return objectPath, nil
}

// Delete removes the object
func (m *MockObjectRepository) Delete(ctx context.Context, objectPath string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, objectPath)
	return nil
}

// GeneratePresignedURL returns a fake URL for the object
func (m *MockObjectRepository) GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.test/%s?expires=%d", objectPath, int(expiry.Seconds())), nil
}

// Object returns a stored object (helper for tests)
func (m *MockObjectRepository) Object(objectPath string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Objects[objectPath]
	return data, ok
}

// PublishedEvent is an event captured by MockEventPublisher
type PublishedEvent struct {
	WorkspaceID int32
	Event       websocket.Event
}

// MockEventPublisher records the events published to the websocket hub
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// Publish records the event
func (m *MockEventPublisher) Publish(workspaceID int32, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{WorkspaceID: workspaceID, Event: event})
}

// Types returns the type of every recorded event in publish order
func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Event.Type
	}
	return types
}

// MockMessagePublisher records broker messages
type MockMessagePublisher struct {
	mu       sync.Mutex
	Messages []*messaging.DailyClosedMessage
	Err      error
	Closed   bool
}

// NewMockMessagePublisher creates a new MockMessagePublisher
func NewMockMessagePublisher() *MockMessagePublisher {
	return &MockMessagePublisher{}
}

// PublishDailyClosed records the message
func (m *MockMessagePublisher) PublishDailyClosed(ctx context.Context, msg *messaging.DailyClosedMessage) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
	return nil
}

// Close marks the publisher as closed
func (m *MockMessagePublisher) Close() error {
	m.Closed = true
	return nil
}
